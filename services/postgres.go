package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-chat/relay_api/model"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

const POSTGRES_SVC = "postgres_svc"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		// Fallback to individual environment variables
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "blackwell"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		timezone := os.Getenv("DB_TIMEZONE")
		if timezone == "" {
			timezone = "UTC"
		}

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbname, port, sslmode, timezone)
	}

	return ds.DefaultService.Configure(ctx)
}

func (ds *PostgresService) Start() (err error) {
	// Retry connection with exponential backoff
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					log.Println("Successfully connected to database")
					break
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	err = ds.db.AutoMigrate(
		&model.Account{},
		&model.Contact{},
	)
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *PostgresService) Shutdown() {
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else if strings.Contains(err.Error(), "connection refused") {
			statusCode = http.StatusServiceUnavailable
			errorType = "DATABASE_CONNECTION_ERROR"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

// ==================== ACCOUNTS ====================

func (ds *PostgresService) GetAccountByEmail(email string) (*model.Account, error) {
	var account model.Account
	if err := ds.db.Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (ds *PostgresService) GetAccountByUsername(username string) (*model.Account, error) {
	var account model.Account
	if err := ds.db.Where("username = ?", username).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (ds *PostgresService) GetAccountByID(id string) (*model.Account, error) {
	var account model.Account
	if err := ds.db.Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (ds *PostgresService) AccountExists(username, email string) (bool, error) {
	var count int64
	err := ds.db.Model(&model.Account{}).
		Where("lower(username) = lower(?) OR lower(email) = lower(?)", username, email).
		Count(&count).Error
	if err != nil {
		return false, ds.HandleError(err)
	}
	return count > 0, nil
}

func (ds *PostgresService) CreateAccount(account *model.Account) (*model.Account, error) {
	if account.ID == "" {
		id, _ := uuid.NewV7()
		account.ID = id.String()
	}
	if err := ds.db.Create(account).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return account, nil
}

func (ds *PostgresService) UpdateAccount(account *model.Account) error {
	if err := ds.db.Save(account).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// DeleteAccount removes the account row plus every contact row it owns or
// appears in, so no contact list keeps naming a deleted user.
func (ds *PostgresService) DeleteAccount(id string) error {
	account, err := ds.GetAccountByID(id)
	if err != nil {
		return err
	}

	if err := ds.db.Where("owner_id = ? OR username = ?", id, account.Username).Delete(&model.Contact{}).Error; err != nil {
		return ds.HandleError(err)
	}
	if err := ds.db.Where("id = ?", id).Delete(&model.Account{}).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) ListAccounts() ([]model.Account, error) {
	var accounts []model.Account
	if err := ds.db.Find(&accounts).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return accounts, nil
}

// ==================== CONTACTS ====================

func (ds *PostgresService) ListContacts(ownerID string) ([]string, error) {
	var contacts []model.Contact
	if err := ds.db.Where("owner_id = ?", ownerID).Order("created_at asc").Find(&contacts).Error; err != nil {
		return nil, ds.HandleError(err)
	}

	usernames := make([]string, 0, len(contacts))
	for _, c := range contacts {
		usernames = append(usernames, c.Username)
	}
	return usernames, nil
}

func (ds *PostgresService) IsContact(ownerID, username string) (bool, error) {
	var count int64
	err := ds.db.Model(&model.Contact{}).
		Where("owner_id = ? AND username = ?", ownerID, username).
		Count(&count).Error
	if err != nil {
		return false, ds.HandleError(err)
	}
	return count > 0, nil
}

func (ds *PostgresService) AddContact(ownerID, username string) error {
	exists, err := ds.IsContact(ownerID, username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	id, _ := uuid.NewV7()
	contact := &model.Contact{
		ID:        id.String(),
		OwnerID:   ownerID,
		Username:  username,
		CreatedAt: time.Now(),
	}
	if err := ds.db.Create(contact).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}
