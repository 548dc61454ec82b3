package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mflix/webserver/internal/common"
	"github.com/mflix/webserver/internal/log"
	"github.com/mflix/webserver/internal/models/user"
	"github.com/mflix/webserver/internal/services"
)

// AccountService is implemented by services.ClientService.
type AccountService interface {
	RegisterUser(ctx context.Context, name, email, password string) (*services.AuthResult, error)
	LoginUser(ctx context.Context, email, password string) (*services.AuthResult, error)
	LogoutUser(ctx context.Context, email string) error
	DeleteUser(ctx context.Context, email, password string) error
	GetUser(ctx context.Context, email string) (*user.User, error)
	UpdatePreferences(ctx context.Context, email string, preferences map[string]interface{}) (*user.User, error)
	VerifyToken(ctx context.Context, token string) (string, error)
}

type WebServer struct {
	app           *fiber.App
	clientService AccountService
	logger        *log.Logger
}

func NewWebServer(clientService AccountService, logger *log.Logger) *WebServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Authorization, Content-Type",
	}))

	s := &WebServer{
		app:           app,
		clientService: clientService,
		logger:        logger,
	}
	s.SetupRoutes()
	return s
}

// Run listens on addr until Shutdown is called.
func (s *WebServer) Run(addr string) error {
	s.logger.Infof("Web server listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app, mainly for app.Test in tests.
func (s *WebServer) App() *fiber.App {
	return s.app
}

func (s *WebServer) SetupRoutes() {
	s.app.Get("/health", s.healthCheck)

	api := s.app.Group("/api/v1/user")
	api.Post("/register", s.registerUser)
	api.Post("/login", s.loginUser)
	api.Post("/logout", s.tokenRequired(s.logoutUser))
	api.Get("/me", s.tokenRequired(s.getUser))
	api.Delete("/delete", s.tokenRequired(s.deleteUser))
	api.Put("/update-preferences", s.tokenRequired(s.updatePreferences))
}

func (s *WebServer) tokenRequired(handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			s.logger.Info("Missing Authorization header")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing Authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.logger.Info("Invalid Authorization header format. Expected: `Bearer <token>`")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Authorization header format. Expected: `Bearer <token>`"})
		}

		email, err := s.clientService.VerifyToken(c.UserContext(), parts[1])
		if err != nil {
			return s.sendError(c, err)
		}

		c.Locals("email", email)
		return handler(c)
	}
}

func userEmail(c *fiber.Ctx) string {
	email, _ := c.Locals("email").(string)
	return email
}

func userInfo(u *user.User) common.UserInfo {
	return common.UserInfo{
		Name:        u.Name,
		Email:       u.Email,
		Preferences: u.Preferences,
	}
}

func (s *WebServer) healthCheck(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *WebServer) registerUser(c *fiber.Ctx) error {
	s.logger.Info("Register request received")

	var req common.RegisterRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Register request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := s.clientService.RegisterUser(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return s.sendError(c, err)
	}

	s.logger.Infof("User %s registered successfully", req.Email)
	return c.Status(http.StatusCreated).JSON(common.AuthResponse{AuthToken: res.Token, Info: userInfo(res.User)})
}

func (s *WebServer) loginUser(c *fiber.Ctx) error {
	s.logger.Info("Login request received")

	var req common.LoginRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Login request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := s.clientService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.sendError(c, err)
	}

	s.logger.Infof("User %s logged in", req.Email)
	return c.Status(http.StatusOK).JSON(common.AuthResponse{AuthToken: res.Token, Info: userInfo(res.User)})
}

func (s *WebServer) logoutUser(c *fiber.Ctx) error {
	email := userEmail(c)
	if err := s.clientService.LogoutUser(c.UserContext(), email); err != nil {
		return s.sendError(c, err)
	}

	s.logger.Infof("User %s logged out", email)
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged out"})
}

func (s *WebServer) getUser(c *fiber.Ctx) error {
	u, err := s.clientService.GetUser(c.UserContext(), userEmail(c))
	if err != nil {
		return s.sendError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"info": userInfo(u)})
}

func (s *WebServer) deleteUser(c *fiber.Ctx) error {
	var req common.DeleteUserRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Delete request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	email := userEmail(c)
	if err := s.clientService.DeleteUser(c.UserContext(), email, req.Password); err != nil {
		return s.sendError(c, err)
	}

	s.logger.Infof("User %s deleted", email)
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "deleted"})
}

func (s *WebServer) updatePreferences(c *fiber.Ctx) error {
	var req common.UpdatePreferencesRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Update preferences request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	u, err := s.clientService.UpdatePreferences(c.UserContext(), userEmail(c), req.Preferences)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"info": userInfo(u)})
}
