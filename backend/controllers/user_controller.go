package controllers

import (
	"errors"
	"strings"
	"time"

	"cognitory/backend/config"
	"cognitory/backend/middleware"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/services"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer services.Mailer
}

func NewUserController(db *gorm.DB, cfg *config.Config, mailer services.Mailer) *UserController {
	return &UserController{DB: db, Cfg: cfg, Mailer: mailer}
}

type signupInput struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword hashes with the configured bcrypt cost.
func HashPassword(password string, cfg *config.Config) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		return "", oops.New(err, "could not hash password")
	}
	return string(hashed), nil
}

// [+] Signup godoc
// @Summary Register a new user
// @Description Creates an unapproved account and mails a pending-approval notice.
// @Description The account is not created if the notice cannot be sent.
// @Tags user
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 406 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /user/signup [post]
func (uc *UserController) Signup(c *fiber.Ctx) error {
	var input signupInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	hashed, err := HashPassword(input.Password, uc.Cfg)
	if err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	user := models.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    normalizeEmail(input.Email),
		Password: hashed,
		Role:     models.RoleUser,
	}
	err = uc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, &models.User{}, "email", user.Email, nil, "", "Email already registered"); err != nil {
			return err
		}
		err := tx.Create(&user).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return oops.Conflict("Email already registered")
		}
		if err != nil {
			return oops.New(err, "could not create user")
		}
		// a failed notice rolls the account back
		msg, err := services.PendingApprovalEmail(user.Email, user.Name)
		if err != nil {
			return err
		}
		return uc.Mailer.Send(ctx, msg)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Signup successful, your account is pending approval", user)
}

// [+] Login godoc
// @Summary User login
// @Description Authenticate an approved user and return a JWT token
// @Tags user
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /user/login [post]
func (uc *UserController) Login(c *fiber.Ctx) error {
	var input loginInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}

	var user models.User
	err := uc.DB.WithContext(c.UserContext()).Where("email = ?", normalizeEmail(input.Email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, oops.Unauthorized("Invalid credentials"))
	}
	if err != nil {
		return utils.Fail(c, oops.New(err, "could not query user"))
	}

	// approval before password, so pending accounts learn why they are refused
	if !user.Approved {
		return utils.Fail(c, oops.Unauthorized("Account is pending approval"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return utils.Fail(c, oops.Unauthorized("Invalid credentials"))
	}

	token, err := utils.GenerateJWTToken(&user, uc.Cfg)
	if err != nil {
		return utils.Fail(c, oops.New(err, "could not generate token"))
	}

	return utils.OK(c, "Login successful", fiber.Map{
		"token": token,
		"user":  user,
	})
}

// ForgotPassword mails a reset link. The answer is the same whether or not
// the address is registered.
func (uc *UserController) ForgotPassword(c *fiber.Ctx) error {
	var input forgotPasswordInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	var user models.User
	err := uc.DB.WithContext(ctx).Where("email = ?", normalizeEmail(input.Email)).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return utils.Fail(c, oops.New(err, "could not query user"))
	default:
		token, err := utils.GenerateResetToken(&user, uc.Cfg)
		if err != nil {
			return utils.Fail(c, oops.New(err, "could not generate reset token"))
		}
		link := strings.TrimRight(uc.Cfg.FrontendLink, "/") + "/reset-password/" + token
		msg, err := services.PasswordResetEmail(user.Email, user.Name, link, utils.ResetTokenTTL)
		if err != nil {
			return utils.Fail(c, err)
		}
		if err := uc.Mailer.Send(ctx, msg); err != nil {
			return utils.Fail(c, err)
		}
	}

	return utils.OK(c, "If the email is registered, a reset link has been sent", nil)
}

func (uc *UserController) ResetPassword(c *fiber.Ctx) error {
	token := c.Params("token")
	var input resetPasswordInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}

	userID, err := utils.ResetTokenSubject(token)
	if err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	err = uc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("id = ?", userID).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return oops.Unauthorized("Invalid or expired reset token")
		}
		if err != nil {
			return oops.New(err, "could not query user")
		}
		if err := utils.VerifyResetToken(token, &user, uc.Cfg); err != nil {
			return err
		}

		hashed, err := HashPassword(input.Password, uc.Cfg)
		if err != nil {
			return err
		}
		if err := tx.Model(&user).Update("password", hashed).Error; err != nil {
			return oops.New(err, "could not update password")
		}
		return nil
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, "Password reset successfully", nil)
}

func (uc *UserController) ChangePassword(c *fiber.Ctx) error {
	var input changePasswordInput
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.Fail(c, err)
	}
	user, err := middleware.CurrentUser(c, uc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		return utils.Fail(c, oops.Unauthorized("Current password is incorrect"))
	}
	hashed, err := HashPassword(input.NewPassword, uc.Cfg)
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := uc.DB.WithContext(c.UserContext()).Model(user).Update("password", hashed).Error; err != nil {
		return utils.Fail(c, oops.New(err, "could not update password"))
	}

	return utils.OK(c, "Password changed successfully", nil)
}

// Me returns the caller's own profile.
func (uc *UserController) Me(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c, uc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, "Profile fetched successfully", user)
}

// [+] ApproveUser godoc
// @Summary Approve a pending account
// @Description The approval is committed before the notice is mailed; a mail failure is only logged.
// @Tags user
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /user/approve/{id} [post]
func (uc *UserController) ApproveUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if !utils.IsValidID(id) {
		return utils.Fail(c, oops.Invalid("Invalid User ID"))
	}
	approver, err := middleware.CurrentUser(c, uc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}

	ctx := c.UserContext()
	var user models.User
	err = uc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return oops.NotFound("User not found")
		}
		if err != nil {
			return oops.New(err, "could not query user")
		}
		if user.Approved {
			return oops.Conflict("User is already approved")
		}

		err = tx.Model(&user).Updates(map[string]interface{}{
			"approved":       true,
			"approved_by_id": approver.ID,
			"approved_at":    time.Now(),
		}).Error
		if err != nil {
			return oops.New(err, "could not approve user")
		}
		return reload(tx, &user, id, "ApprovedBy")
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	msg, err := services.AccountApprovedEmail(user.Email, user.Name, uc.Cfg.FrontendLink)
	if err == nil {
		err = uc.Mailer.Send(ctx, msg)
	}
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to send approval email")
	}

	return utils.OK(c, "User approved successfully", user)
}

// GetUsers lists accounts, optionally narrowed by approved and role.
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	where := map[string]interface{}{}
	if approved := optionalBool(c, "approved"); approved != nil {
		where["approved"] = *approved
	}
	if role := c.Query("role"); role != "" {
		if !models.ValidRole(role) {
			return utils.Fail(c, oops.Validation(map[string]string{"role": "role must be one of [user admin super]"}))
		}
		where["role"] = role
	}
	params := utils.GetPageParams(c)

	build := func() *gorm.DB {
		return uc.DB.Model(&models.User{}).Where(where)
	}
	var users []models.User
	total, err := countAndFind(c.UserContext(), build, params, &users, "created_at DESC", "ApprovedBy")
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Paginated(c, "Users fetched successfully", users, params.Meta(total))
}
