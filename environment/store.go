// Package environment manages the generated deployment environment: database
// and broker credentials, the application secret key, allowed hosts, object
// storage settings and the administrator account.
//
// The store lives on disk as plain KEY=value lines with owner-only
// permissions, for exactly as long as a deployment needs it: created or
// loaded, optionally edited by the operator, consumed by the compose
// templater, then securely destroyed. Only one deployctl invocation should
// operate on a given project directory at a time; no lock is taken and
// concurrent runs are undefined.
package environment

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/secrets"
)

// Field keys in the persisted environment file.
const (
	KeyDatabaseUser   = "DATABASE_USER"
	KeyDatabasePass   = "DATABASE_PASSWORD"
	KeyBrokerUser     = "BROKER_USER"
	KeyBrokerPass     = "BROKER_PASSWORD"
	KeyBrokerURL      = "BROKER_URL"
	KeySecretKey      = "SECRET_KEY"
	KeyAllowedHosts   = "ALLOWED_HOSTS"
	KeyDebug          = "DEBUG"
	KeyS3AccessKey    = "S3_ACCESS_KEY"
	KeyS3SecretKey    = "S3_SECRET_KEY"
	KeyS3Endpoint     = "S3_ENDPOINT"
	KeyMaxUploadSize  = "MAX_UPLOAD_SIZE"
	KeyAdminUsername  = "ADMIN_USERNAME"
	KeyAdminPassword  = "ADMIN_PASSWORD"
	KeyAdminEmail     = "ADMIN_EMAIL"
)

// Placeholder values for fields the operator is expected to edit by hand.
const (
	PlaceholderS3AccessKey = "CHANGE_ME_ACCESS_KEY"
	PlaceholderS3SecretKey = "CHANGE_ME_SECRET_KEY"
	PlaceholderS3Endpoint  = "https://s3.example.com"
	PlaceholderAdminEmail  = "admin@example.com"

	defaultMaxUploadSize = "52428800"
	defaultDebug         = "False"
)

// allFields is the canonical field order for persistence.
var allFields = []string{
	KeyDatabaseUser, KeyDatabasePass,
	KeyBrokerUser, KeyBrokerPass, KeyBrokerURL,
	KeySecretKey, KeyAllowedHosts, KeyDebug,
	KeyS3AccessKey, KeyS3SecretKey, KeyS3Endpoint, KeyMaxUploadSize,
	KeyAdminUsername, KeyAdminPassword, KeyAdminEmail,
}

// requiredFields must be present after Load.
var requiredFields = []string{
	KeyDatabaseUser, KeyDatabasePass,
	KeyBrokerUser, KeyBrokerPass, KeyBrokerURL,
	KeySecretKey, KeyAllowedHosts,
	KeyAdminUsername, KeyAdminPassword,
}

// Store is the flat key-value map of deployment environment fields.
type Store struct {
	values map[string]string
}

// NewGenerated populates every field of a fresh store: random usernames and
// passwords, the application secret key, a broker URL derived from the broker
// credentials, allowed hosts from a best-effort public IP lookup, and
// placeholders for the fields meant for manual operator edit.
func NewGenerated(gen *secrets.Generator, resolver *IPResolver) (*Store, error) {
	store := &Store{values: make(map[string]string)}

	dbUser, err := gen.Username("dbuser")
	if err != nil {
		return nil, fmt.Errorf("generating database user: %w", err)
	}
	dbPass, err := gen.Password()
	if err != nil {
		return nil, fmt.Errorf("generating database password: %w", err)
	}
	brokerUser, err := gen.Username("broker")
	if err != nil {
		return nil, fmt.Errorf("generating broker user: %w", err)
	}
	brokerPass, err := gen.Password()
	if err != nil {
		return nil, fmt.Errorf("generating broker password: %w", err)
	}
	secretKey, err := gen.SecretKey()
	if err != nil {
		return nil, fmt.Errorf("generating secret key: %w", err)
	}
	adminUser, err := gen.Username("admin")
	if err != nil {
		return nil, fmt.Errorf("generating admin user: %w", err)
	}
	adminPass, err := gen.Password()
	if err != nil {
		return nil, fmt.Errorf("generating admin password: %w", err)
	}

	hosts := "localhost"
	if resolver != nil {
		if ip, err := resolver.PublicIP(); err == nil {
			hosts = ip + ",localhost"
		} else {
			common.Logger.Warn("public IP lookup failed, using localhost for allowed hosts: ", err)
		}
	}

	store.values[KeyDatabaseUser] = dbUser
	store.values[KeyDatabasePass] = dbPass
	store.values[KeyBrokerUser] = brokerUser
	store.values[KeyBrokerPass] = brokerPass
	store.values[KeyBrokerURL] = fmt.Sprintf("amqp://%s:%s@rabbitmq:5672//", brokerUser, brokerPass)
	store.values[KeySecretKey] = secretKey
	store.values[KeyAllowedHosts] = hosts
	store.values[KeyDebug] = defaultDebug
	store.values[KeyS3AccessKey] = PlaceholderS3AccessKey
	store.values[KeyS3SecretKey] = PlaceholderS3SecretKey
	store.values[KeyS3Endpoint] = PlaceholderS3Endpoint
	store.values[KeyMaxUploadSize] = defaultMaxUploadSize
	store.values[KeyAdminUsername] = adminUser
	store.values[KeyAdminPassword] = adminPass
	store.values[KeyAdminEmail] = PlaceholderAdminEmail

	common.Logger.WithField("db_user", dbUser).
		WithField("db_password", common.Redact(dbPass)).
		WithField("broker_user", brokerUser).
		WithField("broker_password", common.Redact(brokerPass)).
		WithField("secret_key", common.Redact(secretKey)).
		WithField("admin_user", adminUser).
		WithField("admin_password", common.Redact(adminPass)).
		Debug("credentials generated")

	return store, nil
}

// NewFromValues creates a store from an explicit map, primarily for tests.
func NewFromValues(values map[string]string) *Store {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Store{values: copied}
}

// Get returns the value for a field key, or the empty string.
func (s *Store) Get(key string) string {
	return s.values[key]
}

// Set overwrites a field value.
func (s *Store) Set(key, value string) {
	s.values[key] = value
}

// Keys returns the stored field keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the preconditions for consuming the store: the database
// and broker passwords must never be empty.
func (s *Store) Validate() error {
	for _, key := range []string{KeyDatabasePass, KeyBrokerPass} {
		if s.values[key] == "" {
			return fmt.Errorf("%w: %s", ErrEmptyRequired, key)
		}
	}
	return nil
}

// Persist serializes the store as KEY=value lines with owner-only
// permissions. A chmod failure after a successful write is only a warning.
func (s *Store) Persist(path string) error {
	var sb strings.Builder
	sb.WriteString("# deployctl generated environment. Edit object storage and admin email before deploying.\n")
	for _, key := range allFields {
		if value, ok := s.values[key]; ok {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(value)
			sb.WriteString("\n")
		}
	}
	// Extra keys an operator added by hand survive a regenerate cycle.
	for _, key := range s.Keys() {
		if !isKnownField(key) {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(s.values[key])
			sb.WriteString("\n")
		}
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		common.Logger.Warn("could not restrict environment file permissions: ", err)
	}
	return nil
}

// Load reads a persisted store. Comment and blank lines are ignored. The
// result is checked for the required field set.
func Load(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	store := &Store{values: make(map[string]string)}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		store.values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, key := range requiredFields {
		if _, ok := store.values[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return store, nil
}

func isKnownField(key string) bool {
	for _, known := range allFields {
		if known == key {
			return true
		}
	}
	return false
}
