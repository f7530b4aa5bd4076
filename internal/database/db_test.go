package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "portal:pw@tcp(db:3306)/clinic?charset=utf8mb4&parseTime=true&loc=UTC",
		DSN("portal", "pw", "db", "3306", "clinic"))
	assert.Equal(t, "portal@tcp(db:3306)/clinic?charset=utf8mb4&parseTime=true&loc=UTC",
		DSN("portal", "", "db", "3306", "clinic"))
}
