package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(Config{
		Host:         "ch",
		Port:         9000,
		Database:     "insighthub",
		User:         "svc",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	assert.Equal(t,
		"clickhouse://svc:p%40ss@ch:9000/insighthub?async_insert=1&dial_timeout=5s&max_execution_time=30&wait_for_async_insert=1",
		dsn)
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(Config{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true})
	assert.Equal(t, "http://u:@ch:8123/db", dsn)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.EqualError(t, err, "host is required")
}
