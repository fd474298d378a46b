package mockapi

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
)

// Employee is an account known to the stub backend.
type Employee struct {
	auth.User
	PasswordHash []byte
	Active       bool
}

// CheckPassword reports whether password matches the stored hash.
func (e Employee) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(e.PasswordHash, []byte(password)) == nil
}

// SeedAccount is a plain-text account used to build the seed list.
type SeedAccount struct {
	Username   string
	Password   string
	Department string
	Email      string
	FullName   string
	IsAdmin    bool
	Inactive   bool
}

// DefaultAccounts 与初始化脚本中的演示账号保持一致。
func DefaultAccounts() []SeedAccount {
	return []SeedAccount{
		{Username: "admin", Password: "admin123", Department: "Administration", Email: "admin@wiko-cutlery.com", FullName: "System Administrator", IsAdmin: true},
		{Username: "customer_service", Password: "cs123", Department: "Customer Service", Email: "cs@wiko-cutlery.com", FullName: "Customer Service"},
		{Username: "sales", Password: "sales123", Department: "Sales", Email: "sales@wiko-cutlery.com", FullName: "Sales Team"},
		{Username: "manager", Password: "manager123", Department: "Management", Email: "manager@wiko-cutlery.com", FullName: "Store Manager"},
	}
}

// Seed hashes accounts into employees with sequential ids. The minimum
// bcrypt cost keeps test servers fast to build.
func Seed(accounts []SeedAccount) ([]Employee, error) {
	employees := make([]Employee, 0, len(accounts))
	for i, account := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		employees = append(employees, Employee{
			User: auth.User{
				ID:         int64(i + 1),
				Username:   account.Username,
				Department: account.Department,
				Email:      account.Email,
				FullName:   account.FullName,
				IsAdmin:    account.IsAdmin,
			},
			PasswordHash: hash,
			Active:       !account.Inactive,
		})
	}
	return employees, nil
}
