package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/zaikaroot/zaika_backend/middleware"
	"github.com/zaikaroot/zaika_backend/models"
)

type AuthController struct {
	DB *mongo.Database
}

func NewAuthController(db *mongo.Database) *AuthController {
	return &AuthController{DB: db}
}

// Login authenticates a back-office admin and returns a JWT
func (ac *AuthController) Login(c echo.Context) error {
	var loginReq models.AdminLoginRequest
	if err := c.Bind(&loginReq); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&loginReq); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email and password are required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var admin models.Admin
	err := ac.DB.Collection("admins").FindOne(ctx, bson.M{"email": loginReq.Email}).Decode(&admin)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(loginReq.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin credentials",
		})
	}

	token, err := middleware.GenerateJWT(admin.ID.Hex(), admin.Email, "admin")
	if err != nil {
		log.Printf("Failed to generate admin token: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	cookie := new(http.Cookie)
	cookie.Name = "admin_token"
	cookie.Value = token
	cookie.Expires = time.Now().Add(12 * time.Hour)
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Admin login successful",
		Data: map[string]interface{}{
			"token": token,
			"user": map[string]interface{}{
				"id":       admin.ID,
				"email":    admin.Email,
				"fullName": admin.FullName,
				"role":     "admin",
			},
		},
	})
}
