// Package validation checks user input before it is sent to the backend.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/food_client/internal/models"
)

var ErrValidation = errors.New("validation error")

const (
	FoodNameMin        = 2
	FoodNameMax        = 50
	FoodPriceMin       = 1
	FoodPriceMax       = 10000
	FoodDescriptionMin = 5
	FoodDescriptionMax = 200

	UsernameMin = 3
	PasswordMin = 6
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Food trims the input in place and checks the admin food form limits.
func Food(in *models.FoodInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if n := utf8.RuneCountInString(in.Name); n < FoodNameMin || n > FoodNameMax {
		return invalid("food name must be between %d and %d characters", FoodNameMin, FoodNameMax)
	}
	if in.Price < FoodPriceMin || in.Price > FoodPriceMax {
		return invalid("price must be between ₹%d and ₹%d", FoodPriceMin, FoodPriceMax)
	}
	if n := utf8.RuneCountInString(in.Description); n < FoodDescriptionMin || n > FoodDescriptionMax {
		return invalid("description must be between %d and %d characters", FoodDescriptionMin, FoodDescriptionMax)
	}
	return nil
}

func Username(username string) error {
	if len(username) < UsernameMin {
		return invalid("username must be at least %d characters long", UsernameMin)
	}
	if !usernameRe.MatchString(username) {
		return invalid("username can only contain letters, numbers, and underscores")
	}
	return nil
}

func Email(email string) error {
	if !emailRe.MatchString(email) {
		return invalid("please enter a valid email address")
	}
	return nil
}

func Password(password, confirm string) error {
	if len(password) < PasswordMin {
		return invalid("password must be at least %d characters long", PasswordMin)
	}
	if password != confirm {
		return invalid("passwords do not match")
	}
	return nil
}

// Registration trims username and email in place before checking them.
func Registration(u *models.NewUser, confirm string) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)

	if u.Username == "" || u.Email == "" || u.Password == "" {
		return invalid("please fill in all fields")
	}
	if err := Username(u.Username); err != nil {
		return err
	}
	if err := Email(u.Email); err != nil {
		return err
	}
	if err := Password(u.Password, confirm); err != nil {
		return err
	}
	if u.Role != "" && u.Role != models.RoleCustomer && u.Role != models.RoleAdmin {
		return invalid("unknown role %q", u.Role)
	}
	return nil
}

func Credentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return invalid("please enter both username and password")
	}
	return nil
}

func OrderStatus(s models.OrderStatus) error {
	for _, known := range models.OrderStatuses {
		if s == known {
			return nil
		}
	}
	return invalid("unknown order status %q", s)
}
