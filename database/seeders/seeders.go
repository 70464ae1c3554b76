package seeders

import (
	"log"
	"time"

	"repre_go/database"
	"repre_go/models"
	"repre_go/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedOrganizations()
	SeedUsers()
	SeedSubjects()
	SeedTeachers()

	log.Println("Database seeding completed successfully!")
}

// SeedOrganizations seeds the organizations table
func SeedOrganizations() {
	var count int64
	database.DB.Model(&models.Organization{}).Count(&count)
	if count > 0 {
		log.Println("Organizations already seeded, skipping...")
		return
	}

	orgs := []models.Organization{
		{
			BaseModel: models.BaseModel{ID: 1},
			Name:      "Demo School",
			Code:      "DEMO",
			Active:    true,
		},
	}

	if err := database.DB.Create(&orgs).Error; err != nil {
		log.Printf("Failed to seed organizations: %v", err)
		return
	}
	log.Printf("Seeded %d organizations", len(orgs))
}

// SeedUsers seeds the default accounts
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	password, err := utils.HashPassword("changeme123")
	if err != nil {
		log.Printf("Failed to hash seed password: %v", err)
		return
	}

	users := []models.User{
		{
			Username:       "owner",
			Password:       password,
			Email:          "owner@example.com",
			Role:           "owner",
			OrganizationID: 1,
			Status:         "active",
		},
		{
			Username:       "admin",
			Password:       password,
			Email:          "admin@example.com",
			Role:           "admin",
			OrganizationID: 1,
			Status:         "active",
		},
		{
			Username:       "alice",
			Password:       password,
			Email:          "alice@example.com",
			Role:           "teacher",
			OrganizationID: 1,
			Status:         "active",
		},
		{
			Username:       "bob",
			Password:       password,
			Email:          "bob@example.com",
			Role:           "teacher",
			OrganizationID: 1,
			Status:         "active",
		},
	}

	if err := database.DB.Create(&users).Error; err != nil {
		log.Printf("Failed to seed users: %v", err)
		return
	}
	log.Printf("Seeded %d users", len(users))
}

// SeedSubjects seeds a starter subject catalogue
func SeedSubjects() {
	var count int64
	database.DB.Model(&models.Subject{}).Count(&count)
	if count > 0 {
		log.Println("Subjects already seeded, skipping...")
		return
	}

	subjects := []models.Subject{
		{Name: "Mathematics", Color: "#2563eb", OrganizationID: 1},
		{Name: "English", Color: "#16a34a", OrganizationID: 1},
		{Name: "Physics", Color: "#9333ea", OrganizationID: 1},
	}

	if err := database.DB.Create(&subjects).Error; err != nil {
		log.Printf("Failed to seed subjects: %v", err)
		return
	}
	log.Printf("Seeded %d subjects", len(subjects))
}

// SeedTeachers seeds teacher profiles for the seeded teacher accounts
func SeedTeachers() {
	var count int64
	database.DB.Model(&models.Teacher{}).Count(&count)
	if count > 0 {
		log.Println("Teachers already seeded, skipping...")
		return
	}

	var alice, bob models.User
	if err := database.DB.Where("username = ?", "alice").First(&alice).Error; err != nil {
		log.Printf("Seed user alice not found: %v", err)
		return
	}
	if err := database.DB.Where("username = ?", "bob").First(&bob).Error; err != nil {
		log.Printf("Seed user bob not found: %v", err)
		return
	}

	teachers := []models.Teacher{
		{
			UserID:         alice.ID,
			Name:           "Alice Carter",
			Email:          alice.Email,
			Color:          "#2563eb",
			Active:         true,
			OrganizationID: 1,
		},
		{
			UserID:         bob.ID,
			Name:           "Bob Nguyen",
			Email:          bob.Email,
			Color:          "#16a34a",
			Active:         true,
			OrganizationID: 1,
		},
	}

	if err := database.DB.Create(&teachers).Error; err != nil {
		log.Printf("Failed to seed teachers: %v", err)
		return
	}

	// Qualify both teachers for every seeded subject and give them a default
	// weekday morning availability window
	var subjects []models.Subject
	database.DB.Find(&subjects)
	for i := range teachers {
		database.DB.Model(&teachers[i]).Association("Subjects").Replace(subjects)
		for day := int(time.Monday); day <= int(time.Friday); day++ {
			database.DB.Create(&models.TeacherAvailability{
				TeacherID:   teachers[i].ID,
				DayOfWeek:   day,
				StartMinute: 8 * 60,
				EndMinute:   16 * 60,
			})
		}
	}

	log.Printf("Seeded %d teachers", len(teachers))
}
