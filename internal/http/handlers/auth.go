package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/config"
	"github.com/spendtrack/spendtrack/internal/domain/user"
	"github.com/spendtrack/spendtrack/internal/http/middlewares"
	"github.com/spendtrack/spendtrack/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        *auth.Manager
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwtManager,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	// Cheap pre-check. The unique index on email is what actually guards
	// against a concurrent duplicate registration.
	_, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil {
		RespondConflict(ctx, "User already exists")
		return
	}

	if !errors.Is(err, user.ErrNotFound) {
		TranslateError(ctx, err)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Name, req.Email, hash)

	if err != nil {
		TranslateError(ctx, err)
		return
	}

	token, err := h.jwt.GenerateToken(u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User registered successfully",
		"token":   token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		// an unknown email is NotFound; only a failed password check is 401
		TranslateError(ctx, err)
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "Invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// Info returns the user the access-control gate resolved for this request.

func (h *AuthHandler) Info(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "You are not authorized to access this route")
		return
	}

	Respond(ctx, http.StatusOK, u)
}
