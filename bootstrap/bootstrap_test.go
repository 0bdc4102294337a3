package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nq-deploy/deployctl/environment"
)

func TestConfigFromStore(t *testing.T) {
	store := environment.NewFromValues(map[string]string{
		environment.KeyDatabaseUser: "dbuser_ab12cd34",
		environment.KeyDatabasePass: "s3cr3t",
	})

	cfg := ConfigFromStore(store, "127.0.0.1", 5432, "natiq")
	assert.Equal(t, "dbuser_ab12cd34", cfg.User)
	assert.Equal(t, "s3cr3t", cfg.Password)
	assert.Equal(t, "natiq", cfg.Database)
}

func TestDSN(t *testing.T) {
	cfg := Config{
		Host:     "127.0.0.1",
		Port:     5432,
		Database: "natiq",
		User:     "u",
		Password: "p",
	}
	assert.Equal(t,
		"host=127.0.0.1 port=5432 user=u password=p dbname=natiq sslmode=disable",
		cfg.DSN())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "app_accounts", Account{}.TableName())
	assert.Equal(t, "app_users", User{}.TableName())
}
