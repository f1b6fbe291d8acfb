package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleSuper = "super"
)

var roleRank = map[string]int{
	RoleUser:  1,
	RoleAdmin: 2,
	RoleSuper: 3,
}

// RoleAtLeast reports whether role meets the min threshold. Unknown roles never do.
func RoleAtLeast(role, min string) bool {
	have, ok := roleRank[role]
	if !ok {
		return false
	}
	return have >= roleRank[min]
}

func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

type User struct {
	Base
	Name         string     `json:"name" gorm:"size:255;not null"`
	Email        string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password     string     `json:"-" gorm:"size:255;not null"`
	Role         string     `json:"role" gorm:"size:16;not null;default:user"`
	Approved     bool       `json:"approved" gorm:"not null;default:false"`
	ApprovedByID *string    `json:"approvedById" gorm:"size:36"`
	ApprovedBy   *User      `json:"approvedBy,omitempty" gorm:"foreignKey:ApprovedByID"`
	ApprovedAt   *time.Time `json:"approvedAt"`
	Questions    []Question `json:"questions,omitempty" gorm:"foreignKey:CreatorID"`
}
