package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

type fakeSource struct {
	appts    []model.Appointment
	contacts map[string]*model.Contact
	scanErr  error

	mu     sync.Mutex
	blocks chan struct{}
}

func (f *fakeSource) AppointmentsOn(_ context.Context, _ time.Time, _ model.Status) ([]model.Appointment, error) {
	if f.blocks != nil {
		<-f.blocks
	}
	return f.appts, f.scanErr
}

func (f *fakeSource) CustomerContact(_ context.Context, customerID string) (*model.Contact, error) {
	return f.contacts[customerID], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []string
	failOn map[string]bool
}

func (n *recordingNotifier) Send(_ context.Context, contact *model.Contact, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failOn[contact.Email] {
		return errors.New("smtp unreachable")
	}
	n.sent = append(n.sent, body)
	return nil
}

func tomorrowAppt(id, customerID string, hour int) model.Appointment {
	day := time.Now().AddDate(0, 0, 1)
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.Local)
	return model.Appointment{
		ID:         id,
		CustomerID: customerID,
		MechanicID: "mech-1",
		Date:       start.Truncate(24 * time.Hour),
		Start:      start,
		End:        start.Add(time.Hour),
		Status:     model.StatusScheduled,
	}
}

func testDispatcher(source *fakeSource, notifier *recordingNotifier) *Dispatcher {
	logger := zerolog.Nop()
	return NewDispatcher(source, notifier, NewMemoryDedupe(), nil, 4, &logger)
}

func TestDispatchSendsReminders(t *testing.T) {
	source := &fakeSource{
		appts: []model.Appointment{
			tomorrowAppt("appt-1", "cust-1", 9),
			tomorrowAppt("appt-2", "cust-2", 14),
		},
		contacts: map[string]*model.Contact{
			"cust-1": {CustomerID: "cust-1", Name: "Ada Reyes", Email: "ada@example.com"},
			"cust-2": {CustomerID: "cust-2", Name: "Kim Novak", Email: "kim@example.com"},
		},
	}
	notifier := &recordingNotifier{}
	d := testDispatcher(source, notifier)

	sent, err := d.Dispatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent, "Hi Ada Reyes, this is a reminder for your appointment tomorrow at 09:00.")
}

func TestDispatchIsIdempotentPerDay(t *testing.T) {
	source := &fakeSource{
		appts: []model.Appointment{tomorrowAppt("appt-1", "cust-1", 9)},
		contacts: map[string]*model.Contact{
			"cust-1": {CustomerID: "cust-1", Name: "Ada", Email: "ada@example.com"},
		},
	}
	notifier := &recordingNotifier{}
	d := testDispatcher(source, notifier)

	sent, err := d.Dispatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = d.Dispatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "second scan skips already claimed reminders")
	assert.Len(t, notifier.sent, 1)
}

func TestDispatchFailureDoesNotAbortBatch(t *testing.T) {
	source := &fakeSource{
		appts: []model.Appointment{
			tomorrowAppt("appt-1", "cust-1", 9),
			tomorrowAppt("appt-2", "cust-2", 10),
			tomorrowAppt("appt-3", "cust-3", 11),
		},
		contacts: map[string]*model.Contact{
			"cust-1": {CustomerID: "cust-1", Name: "Ada", Email: "ada@example.com"},
			"cust-2": {CustomerID: "cust-2", Name: "Kim", Email: "kim@example.com"},
			"cust-3": {CustomerID: "cust-3", Name: "Lee", Email: "lee@example.com"},
		},
	}
	notifier := &recordingNotifier{failOn: map[string]bool{"kim@example.com": true}}
	d := testDispatcher(source, notifier)

	sent, err := d.Dispatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, notifier.sent, 2)
}

func TestDispatchMissingContact(t *testing.T) {
	source := &fakeSource{
		appts:    []model.Appointment{tomorrowAppt("appt-1", "cust-gone", 9)},
		contacts: map[string]*model.Contact{},
	}
	notifier := &recordingNotifier{}
	d := testDispatcher(source, notifier)

	sent, err := d.Dispatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestDispatchScanError(t *testing.T) {
	source := &fakeSource{scanErr: errors.New("database is locked")}
	d := testDispatcher(source, &recordingNotifier{})

	_, err := d.Dispatch(context.Background(), time.Now())
	assert.ErrorContains(t, err, "database is locked")
}

func TestDispatchSingleFlight(t *testing.T) {
	blocks := make(chan struct{})
	source := &fakeSource{blocks: blocks}
	d := testDispatcher(source, &recordingNotifier{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(context.Background(), time.Now())
	}()

	// Wait until the first dispatch is parked inside the scan.
	assert.Eventually(t, func() bool {
		return d.inFlight.Load()
	}, time.Second, 5*time.Millisecond)

	_, err := d.Dispatch(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(blocks)
	<-done
}

func TestTimeUntilNextHour(t *testing.T) {
	now := time.Date(2026, time.March, 2, 6, 30, 0, 0, time.Local)
	assert.Equal(t, 90*time.Minute, timeUntilNextHour(now, 8))

	// Already past the dispatch hour: wait for tomorrow.
	late := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.Local)
	assert.Equal(t, 23*time.Hour, timeUntilNextHour(late, 8))
}
