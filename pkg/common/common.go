package common

import (
	"os"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/labstack/gommon/random"
	"golang.org/x/crypto/bcrypt"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"

	// NA is the sentinel stored when an external lookup yields no image.
	NA = "none"
)

var (
	snowflakeNode *snowflake.Node
	snowflakeOnce sync.Once
)

// UUIDint64 returns a cluster-unique int64 id.
func UUIDint64() int64 {
	snowflakeOnce.Do(func() {
		var err error
		snowflakeNode, err = snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
	})
	return snowflakeNode.Generate().Int64()
}

// HashPassword hashes a clear-text password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash against a clear-text candidate.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GetSecret returns the configured application secret, generating a
// process-local random one when nothing is configured.
func GetSecret(configured string) string {
	if configured != "" {
		return configured
	}
	if v := os.Getenv("STOCKPILE_SECRET"); v != "" {
		return v
	}
	secretOnce.Do(func() {
		generatedSecret = random.String(32)
	})
	return generatedSecret
}

var (
	secretOnce      sync.Once
	generatedSecret string
)

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
