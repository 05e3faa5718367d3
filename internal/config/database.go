// internal/config/database.go
package config

import (
	"fmt"
	"time"
)

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// TxDeadline bounds a single step transaction, including pool acquisition.
func (d *DatabaseConfig) TxDeadline() time.Duration {
	if d.TxTimeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(d.TxTimeout) * time.Second
}
