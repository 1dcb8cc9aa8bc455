package db

import (
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// UserRepository reads the identity mirror. Accounts are provisioned by the
// identity provider; nothing here writes to the table.
type UserRepository interface {
	FindUserByID(userID string) (*models.User, error)
	FindUsersByIDs(userIDs []string) ([]models.User, error)
}

type userRepo struct {
	DB *gorm.DB
}

func NewUserRepo(db *GormDB) UserRepository {
	return &userRepo{db.DB}
}

func (r *userRepo) FindUserByID(userID string) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find user")
	}
	return &user, nil
}

func (r *userRepo) FindUsersByIDs(userIDs []string) ([]models.User, error) {
	var users []models.User
	err := r.DB.Where("id IN ?", userIDs).Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find users")
	}
	return users, nil
}
