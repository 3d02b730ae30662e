package chrono

import (
	"sync"
	"time"
	_ "time/tzdata"
)

var gdl *time.Location

func init() {
	var err error
	gdl, err = time.LoadLocation("America/Mexico_City")
	if err != nil {
		panic(err)
	}
}

// Guadalajara returns a [*time.Location] for America/Mexico_City, which is what
// the course offering schedules are written in.
func Guadalajara() *time.Location {
	return gdl
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time, the timezone of the time will default to America/Mexico_City.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(gdl)
}

// FakeTime is a TimeAPI whose clock only moves when told to.
type FakeTime struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFakeTime(now time.Time) *FakeTime {
	return &FakeTime{now: now}
}

func (f *FakeTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *FakeTime) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}
