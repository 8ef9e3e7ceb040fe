package devserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/models"
)

// Server is a development stand-in for the hosted marketplace API. It
// issues HS256 bearer tokens at /api-set-token and guards the
// privileged routes with echo-jwt, so the client exercises the same
// 401/403 paths it would against production.
type Server struct {
	store  *Store
	secret []byte
}

func New(store *Store, jwtSecret string) *Server {
	return &Server{store: store, secret: []byte(jwtSecret)}
}

// Echo builds the route tree.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/api-set-token", s.setToken)
	e.POST("/new-user", s.newUser)
	e.GET("/classes", s.classes)
	e.GET("/class/:id", s.class)
	e.GET("/instructors", s.instructors)

	guarded := e.Group("", echojwt.WithConfig(echojwt.Config{SigningKey: s.secret}))
	guarded.GET("/user/:email", s.user)
	guarded.POST("/add-to-cart", s.addToCart)
	guarded.GET("/cart-item/:classId", s.cartItem)
	guarded.DELETE("/delete-cart-item/:id", s.deleteCartItem)

	return e
}

// setToken exchanges {email, name} for a bearer token. This is the one
// route the client calls unauthenticated.
func (s *Server) setToken(c echo.Context) error {
	var req models.TokenExchangeRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "email is required"})
	}

	claims := jwt.MapClaims{
		"sub": req.Email,
		"iss": "yoga-master-devserver",
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign token")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to sign token"})
	}

	return c.JSON(http.StatusOK, models.TokenExchangeResponse{Token: signed})
}

func (s *Server) newUser(c echo.Context) error {
	var req models.NewUserRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "email is required"})
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if err := s.store.UpsertUser(c.Request().Context(), req); err != nil {
		log.Error().Err(err).Msg("Failed to upsert user")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to store user"})
	}
	return c.JSON(http.StatusCreated, models.InsertResponse{InsertedID: req.Email})
}

// tokenEmail returns the subject of the verified bearer token.
func tokenEmail(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// user returns the profile for an email. A valid token for a different
// user gets 403, mirroring the hosted backend's ownership check.
func (s *Server) user(c echo.Context) error {
	email := c.Param("email")
	if tokenEmail(c) != email {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden"})
	}

	profile, err := s.store.GetUser(c.Request().Context(), email)
	if errors.Is(err, ErrNoRecord) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "user not found"})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load user")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load user"})
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) classes(c echo.Context) error {
	classes, err := s.store.ListClasses(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list classes")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list classes"})
	}
	return c.JSON(http.StatusOK, classes)
}

func (s *Server) class(c echo.Context) error {
	class, err := s.store.GetClass(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNoRecord) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "class not found"})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load class")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load class"})
	}
	return c.JSON(http.StatusOK, class)
}

func (s *Server) instructors(c echo.Context) error {
	instructors, err := s.store.ListInstructors(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list instructors")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list instructors"})
	}
	return c.JSON(http.StatusOK, instructors)
}

func (s *Server) addToCart(c echo.Context) error {
	var req models.AddToCartRequest
	if err := c.Bind(&req); err != nil || req.ClassID == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "classId is required"})
	}
	if tokenEmail(c) != req.UserMail {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden"})
	}

	id, err := s.store.InsertCartItem(c.Request().Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert cart item")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to insert cart item"})
	}
	return c.JSON(http.StatusCreated, models.InsertResponse{InsertedID: id})
}

func (s *Server) cartItem(c echo.Context) error {
	email := c.QueryParam("email")
	if tokenEmail(c) != email {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden"})
	}

	item, err := s.store.GetCartItem(c.Request().Context(), c.Param("classId"), email)
	if errors.Is(err, ErrNoRecord) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "cart item not found"})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load cart item")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load cart item"})
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) deleteCartItem(c echo.Context) error {
	err := s.store.DeleteCartItem(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNoRecord) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "cart item not found"})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete cart item")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete cart item"})
	}
	return c.NoContent(http.StatusNoContent)
}
