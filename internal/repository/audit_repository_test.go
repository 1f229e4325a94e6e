package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/booking-api/internal/models"
)

func auditRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "details", "ip_address", "user_agent", "created_at", "user_name", "user_email"})
}

func TestAuditCreateFillsIDAndTimestamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{Action: models.AuditActionCreateReservation, Resource: "reservation", Details: "Created"}
	require.NoError(t, repo.Create(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.False(t, log.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)

	userID := "user-1"
	mock.ExpectQuery(regexp.QuoteMeta("l.action = $1 AND l.user_id = $2")).
		WithArgs("CREATE_RESERVATION", "user-1").
		WillReturnRows(auditRows().AddRow("log-1", &userID, "CREATE_RESERVATION", "reservation", nil, "Created", "10.0.0.1", "curl", time.Now(), nil, nil))

	logs, err := repo.List(context.Background(), models.AuditLogFilter{Action: "CREATE_RESERVATION", UserID: "user-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log-1", logs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListDefaultsLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY l.created_at DESC LIMIT 50")).
		WillReturnRows(auditRows())

	_, err := repo.List(context.Background(), models.AuditLogFilter{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
