package store

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilcall-go/internal/logger"
	"oilcall-go/internal/types"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, logger.NewWithOutput(io.Discard))
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func strPtr(s string) *string { return &s }

func TestCreatePhoneCall(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO phone_calls").
		WithArgs(sqlmock.AnyArg(), "call_1", "+12015550123", 2019, "Honda", "Civic", "EX",
			types.CallStatusRegistered, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pc := &types.PhoneCall{
		CallID:      "call_1",
		PhoneNumber: "+12015550123",
		CarYear:     2019,
		CarMake:     "Honda",
		CarModel:    "Civic",
		CarTrim:     "EX",
		Status:      types.CallStatusRegistered,
	}
	require.NoError(t, repo.CreatePhoneCall(context.Background(), pc))
	assert.NotEmpty(t, pc.ID)
	assert.Equal(t, fixedNow, pc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePhoneCall(t *testing.T) {
	repo, mock := newMockRepo(t)

	hold := 42.5
	voicemail := false
	mock.ExpectExec("UPDATE phone_calls SET").
		WithArgs(types.CallStatusEnded, "$49.99", "Tomorrow 9am", 42.5,
			"https://example.com/rec.wav", false, "transcript", fixedNow, "call_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePhoneCall(context.Background(), "call_1", types.CallResult{
		Status:             types.CallStatusEnded,
		OilChangePrice:     strPtr("$49.99"),
		SoonestServiceAppt: strPtr("Tomorrow 9am"),
		HoldTimeSeconds:    &hold,
		RecordingURL:       strPtr("https://example.com/rec.wav"),
		SentToVoicemail:    &voicemail,
		Transcript:         strPtr("transcript"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePhoneCall_UndeterminedHoldIsNull(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE phone_calls SET").
		WithArgs(types.CallStatusEnded, nil, nil, nil, nil, nil, nil, fixedNow, "call_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePhoneCall(context.Background(), "call_1", types.CallResult{Status: types.CallStatusEnded})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePhoneCall_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE phone_calls SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePhoneCall(context.Background(), "missing", types.CallResult{Status: types.CallStatusEnded})
	assert.ErrorIs(t, err, ErrNotFound)
}

func phoneCallRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "call_id", "phone_number", "car_year", "car_make", "car_model", "car_trim", "status",
		"oil_change_price", "soonest_service_appt", "hold_time_seconds", "recording_url",
		"sent_to_voicemail", "transcript", "created_at", "updated_at",
	})
}

func TestGetPhoneCall(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM phone_calls WHERE call_id = ?").
		WithArgs("call_1").
		WillReturnRows(phoneCallRows().AddRow(
			"id-1", "call_1", "+12015550123", 2019, "Honda", "Civic", "", types.CallStatusEnded,
			"$49.99", nil, 12.0, nil, true, nil, fixedNow, fixedNow,
		))

	pc, err := repo.GetPhoneCall(context.Background(), "call_1")
	require.NoError(t, err)
	assert.Equal(t, "Honda", pc.CarMake)
	require.NotNil(t, pc.OilChangePrice)
	assert.Equal(t, "$49.99", *pc.OilChangePrice)
	assert.Nil(t, pc.SoonestServiceAppt)
	require.NotNil(t, pc.HoldTimeSeconds)
	assert.Equal(t, 12.0, *pc.HoldTimeSeconds)
	require.NotNil(t, pc.SentToVoicemail)
	assert.True(t, *pc.SentToVoicemail)
	assert.Nil(t, pc.Transcript)
}

func TestGetPhoneCall_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM phone_calls").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetPhoneCall(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPhoneCalls(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM phone_calls ORDER BY created_at DESC$`).
		WillReturnRows(phoneCallRows().
			AddRow("id-2", "call_2", "+12015550124", 2021, "Ford", "F-150", "XLT", types.CallStatusOngoing,
				nil, nil, nil, nil, nil, nil, fixedNow, fixedNow).
			AddRow("id-1", "call_1", "+12015550123", 2019, "Honda", "Civic", "", types.CallStatusEnded,
				"$49.99", "Friday", nil, nil, false, "text", fixedNow, fixedNow))

	calls, err := repo.ListPhoneCalls(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "call_2", calls[0].CallID)
	assert.Nil(t, calls[0].HoldTimeSeconds)
	assert.Equal(t, "Friday", *calls[1].SoonestServiceAppt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPhoneCalls_Limit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM phone_calls ORDER BY created_at DESC LIMIT \?$`).
		WithArgs(10).
		WillReturnRows(phoneCallRows())

	calls, err := repo.ListPhoneCalls(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS phone_calls").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreatePhoneCall(ctx, &types.PhoneCall{CallID: "call_1", Status: types.CallStatusRegistered}))
	assert.Error(t, m.CreatePhoneCall(ctx, &types.PhoneCall{CallID: "call_1"}))

	hold := 3.0
	require.NoError(t, m.UpdatePhoneCall(ctx, "call_1", types.CallResult{Status: types.CallStatusEnded, HoldTimeSeconds: &hold}))
	assert.ErrorIs(t, m.UpdatePhoneCall(ctx, "nope", types.CallResult{}), ErrNotFound)

	pc, err := m.GetPhoneCall(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, types.CallStatusEnded, pc.Status)
	assert.Equal(t, 3.0, *pc.HoldTimeSeconds)

	calls, err := m.ListPhoneCalls(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}
