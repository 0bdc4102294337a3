// Package bootstrap seeds the application database with the internal
// bootstrap_bot account. The API attributes machine-imported content to this
// account, so it has to exist before the first import runs.
package bootstrap

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/environment"
)

// BotUsername is the reserved account machine imports run under.
const BotUsername = "bootstrap_bot"

// Account mirrors the application's app_accounts table.
type Account struct {
	ID          int64  `gorm:"primaryKey"`
	Username    string `gorm:"column:username"`
	AccountType string `gorm:"column:account_type"`
}

func (Account) TableName() string { return "app_accounts" }

// User mirrors the application's app_users table.
type User struct {
	ID        int64  `gorm:"primaryKey"`
	AccountID int64  `gorm:"column:account_id"`
	Language  string `gorm:"column:language"`
}

func (User) TableName() string { return "app_users" }

// Config carries the connection parameters for the application database.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ConfigFromStore builds a connection config from the environment store,
// targeting the database published on the host by the compose stack.
func ConfigFromStore(store *environment.Store, host string, port int, database string) Config {
	return Config{
		Host:     host,
		Port:     port,
		Database: database,
		User:     store.Get(environment.KeyDatabaseUser),
		Password: store.Get(environment.KeyDatabasePass),
	}
}

// DSN renders the config as a gorm/pgx connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// Open connects to the application database.
func Open(cfg Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// EnsureAccount creates an account and its user row under username if they
// do not exist yet. Re-running against a seeded database is a no-op; the
// account id is returned either way.
func EnsureAccount(db *gorm.DB, username string) (int64, error) {
	var accountID int64

	err := db.Transaction(func(tx *gorm.DB) error {
		var existing Account
		res := tx.Where("username = ?", username).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			common.Logger.WithField("username", username).
				WithField("account_id", existing.ID).Info("account already exists")
			accountID = existing.ID
			return nil
		}

		account := Account{Username: username, AccountType: "user"}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		user := User{AccountID: account.ID, Language: "en"}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		common.Logger.WithField("username", username).
			WithField("account_id", account.ID).Info("account created")
		accountID = account.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return accountID, nil
}

// EnsureBotAccount creates the bootstrap_bot account machine imports run
// under.
func EnsureBotAccount(db *gorm.DB) (int64, error) {
	return EnsureAccount(db, BotUsername)
}

// Run opens the database and ensures the bootstrap account in one call.
func Run(cfg Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	_, err = EnsureBotAccount(db)
	return err
}
