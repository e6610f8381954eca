package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/quiknotes/core/internal/middleware"
	"github.com/quiknotes/core/internal/models"
	"github.com/quiknotes/core/internal/pkg/response"
	sessionpkg "github.com/quiknotes/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrBadCredentials = errors.New("wrong username or password")
	ErrUsernameTaken  = errors.New("username already taken")
)

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
	Mail     string `json:"mail"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Mail          string     `json:"mail"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user"`
}

func toResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID: u.ID, Username: u.Username, Name: u.Name, Mail: u.Mail,
		LastLoginTime: u.LastLoginTime, LastLoginIP: u.LastLoginIP,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		name = dto.Username
	}
	u := models.UserModel{
		Username: strings.TrimSpace(dto.Username),
		Password: string(hash),
		Name:     name,
		Mail:     strings.TrimSpace(dto.Mail),
	}
	if err := s.db.Create(&u).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) Login(username, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Slow the response down so probing for usernames costs the same
			// as a wrong password.
			time.Sleep(3 * time.Second)
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		time.Sleep(3 * time.Second)
		return "", nil, ErrBadCredentials
	}

	now := time.Now()
	s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	return token, &u, err
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// SessionCloser is notified when a user signs out so live state tied to
// the account can be torn down.
type SessionCloser interface {
	CloseUser(userID string)
}

type Handler struct {
	svc    *Service
	closer SessionCloser
}

func NewHandler(svc *Service, closer SessionCloser) *Handler {
	return &Handler{svc: svc, closer: closer}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")

	g.POST("/register", h.register)
	g.POST("/login", h.login)

	a := g.Group("", authMW)
	a.GET("/me", h.me)
	a.POST("/logout", h.logout)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, User: toResponse(u)})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) logout(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if err := sessionpkg.Revoke(h.svc.db, userID, middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}

	// Live notes state is only torn down once the last session is gone.
	if h.closer != nil {
		if active, err := sessionpkg.HasActive(h.svc.db, userID); err == nil && !active {
			h.closer.CloseUser(userID)
		}
	}
	response.NoContent(c)
}
