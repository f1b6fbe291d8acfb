package middleware

import (
	"errors"

	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/oops"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	localsClaims = "claims"
	localsUser   = "user"
)

// AuthMiddleware verifies the bearer token and stores its claims on the
// request. It never touches the database.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := utils.ExtractToken(c)
		if err != nil {
			return utils.Fail(c, err)
		}
		claims, err := utils.ParseToken(token, cfg)
		if err != nil {
			return utils.Fail(c, oops.Unauthorized("Unauthorized"))
		}
		c.Locals(localsClaims, claims)
		return c.Next()
	}
}

// RoleMiddleware re-reads the caller's User so that a demotion takes effect
// on the next request, whatever the token says.
func RoleMiddleware(db *gorm.DB, min string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c, db)
		if err != nil {
			return utils.Fail(c, err)
		}
		if !models.RoleAtLeast(user.Role, min) {
			return utils.Fail(c, oops.Unauthorized("Unauthorized - %s access required", min))
		}
		return c.Next()
	}
}

func AdminMiddleware(db *gorm.DB) fiber.Handler {
	return RoleMiddleware(db, models.RoleAdmin)
}

func SuperMiddleware(db *gorm.DB) fiber.Handler {
	return RoleMiddleware(db, models.RoleSuper)
}

// ClaimsFrom returns the verified token claims, or nil outside AuthMiddleware.
func ClaimsFrom(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(localsClaims).(*utils.Claims)
	return claims
}

// CurrentUser loads the caller's live User row once per request. Unknown,
// deleted or unapproved users are unauthorized.
func CurrentUser(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	if user, ok := c.Locals(localsUser).(*models.User); ok {
		return user, nil
	}

	claims := ClaimsFrom(c)
	if claims == nil {
		return nil, oops.Unauthorized("Unauthorized")
	}

	var user models.User
	err := db.WithContext(c.UserContext()).Where("id = ?", claims.UserID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Unauthorized("Unauthorized")
	}
	if err != nil {
		return nil, oops.New(err, "failed to load current user")
	}
	if !user.Approved {
		return nil, oops.Unauthorized("Account is pending approval")
	}

	c.Locals(localsUser, &user)
	return &user, nil
}

// CurrentRole is the caller's live role.
func CurrentRole(c *fiber.Ctx, db *gorm.DB) (string, error) {
	user, err := CurrentUser(c, db)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}
