package controllers

import (
	"repre_go/database"
	"repre_go/middleware"
	"repre_go/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TeacherController struct{}

// GetTeachers returns the teachers of the caller's organization
func (tc *TeacherController) GetTeachers(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing user claims",
		})
	}

	var teachers []models.Teacher
	query := database.DB.Where("organization_id = ?", claims.OrganizationID).
		Preload("Subjects").Preload("Availability")

	if active := c.Query("active"); active == "true" {
		query = query.Where("active = ?", true)
	}

	if err := query.Order("name").Find(&teachers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch teachers",
		})
	}

	return c.JSON(fiber.Map{
		"teachers": teachers,
		"total":    len(teachers),
	})
}

// GetTeacher returns a specific teacher
func (tc *TeacherController) GetTeacher(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid teacher ID",
		})
	}

	var teacher models.Teacher
	if err := database.DB.Preload("Subjects").Preload("Availability").
		First(&teacher, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Teacher not found",
		})
	}

	return c.JSON(fiber.Map{"teacher": teacher})
}

type teacherRequest struct {
	UserID     uint   `json:"user_id"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email"`
	Color      string `json:"color"`
	SubjectIDs []uint `json:"subject_ids"`
}

// CreateTeacher adds a teacher profile (admin only)
func (tc *TeacherController) CreateTeacher(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing user claims",
		})
	}

	var req teacherRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	teacher := models.Teacher{
		UserID:         req.UserID,
		Name:           req.Name,
		Email:          req.Email,
		Color:          req.Color,
		Active:         true,
		OrganizationID: claims.OrganizationID,
	}

	if err := database.DB.Create(&teacher).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create teacher",
		})
	}

	if len(req.SubjectIDs) > 0 {
		var subjects []models.Subject
		database.DB.Find(&subjects, req.SubjectIDs)
		database.DB.Model(&teacher).Association("Subjects").Replace(subjects)
	}

	middleware.LogActivity(c, "CREATE", "teachers", "", fiber.Map{"name": teacher.Name})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Teacher created successfully",
		"teacher": teacher,
	})
}

// UpdateTeacher updates a teacher profile (admin only)
func (tc *TeacherController) UpdateTeacher(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid teacher ID",
		})
	}

	var teacher models.Teacher
	if err := database.DB.First(&teacher, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Teacher not found",
		})
	}

	var req struct {
		Name       *string `json:"name"`
		Email      *string `json:"email"`
		Color      *string `json:"color"`
		Active     *bool   `json:"active"`
		SubjectIDs []uint  `json:"subject_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&teacher).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update teacher",
			})
		}
	}

	if req.SubjectIDs != nil {
		var subjects []models.Subject
		database.DB.Find(&subjects, req.SubjectIDs)
		database.DB.Model(&teacher).Association("Subjects").Replace(subjects)
	}

	middleware.LogActivity(c, "UPDATE", "teachers", c.Params("id"), nil)

	return c.JSON(fiber.Map{
		"message": "Teacher updated successfully",
		"teacher": teacher,
	})
}

type availabilityWindow struct {
	DayOfWeek   int `json:"day_of_week"`
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// SetAvailability replaces a teacher's advisory weekly windows
func (tc *TeacherController) SetAvailability(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid teacher ID",
		})
	}

	var teacher models.Teacher
	if err := database.DB.First(&teacher, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Teacher not found",
		})
	}

	var req struct {
		Windows []availabilityWindow `json:"windows"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	for _, w := range req.Windows {
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 || w.StartMinute < 0 || w.EndMinute > 24*60 || w.StartMinute >= w.EndMinute {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Invalid availability window",
			})
		}
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("teacher_id = ?", teacher.ID).
			Delete(&models.TeacherAvailability{}).Error; err != nil {
			return err
		}
		for _, w := range req.Windows {
			window := models.TeacherAvailability{
				TeacherID:   teacher.ID,
				DayOfWeek:   w.DayOfWeek,
				StartMinute: w.StartMinute,
				EndMinute:   w.EndMinute,
			}
			if err := tx.Create(&window).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update availability",
		})
	}

	middleware.LogActivity(c, "UPDATE", "teachers", c.Params("id"), fiber.Map{
		"windows": len(req.Windows),
	})

	return c.JSON(fiber.Map{"message": "Availability updated successfully"})
}
