package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginChecker_IsLogged(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	checker := NewLoginChecker(time.Hour, rdb)
	ctx := context.Background()

	// fresh session
	mock.ExpectGet(sessionKeyPrefix + "fresh").SetVal(fmt.Sprintf("%d", time.Now().Unix()))
	logged, err := checker.IsLogged(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, logged)

	// expired session
	mock.ExpectGet(sessionKeyPrefix + "stale").SetVal(fmt.Sprintf("%d", time.Now().Add(-2*time.Hour).Unix()))
	logged, err = checker.IsLogged(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, logged)

	// unknown session
	mock.ExpectGet(sessionKeyPrefix + "nope").RedisNil()
	_, err = checker.IsLogged(ctx, "nope")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
