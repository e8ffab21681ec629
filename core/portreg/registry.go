package portreg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrPortBusy is returned when another live process holds the reservation.
var ErrPortBusy = errors.New("portreg: port is reserved by a running process")

// Reservation records which process claimed a REST port. Rows of dead
// processes are pruned on the next Reserve.
type Reservation struct {
	Port      int `gorm:"primaryKey"`
	PID       int
	CreatedAt time.Time
}

// Registry is the shared, cross-process store of port reservations. It keeps
// concurrent bridge processes from launching duplicate engines on the same
// port; sqlite's file locking provides the mutual exclusion.
type Registry struct {
	db *gorm.DB
}

// Open opens the reservation store, creating it if needed. An empty path
// uses the platform cache directory; ":memory:" yields a private in-memory
// store for tests.
func Open(path string) (*Registry, error) {
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache dir: %w", err)
		}
		path = filepath.Join(dir, "engine-bridge", "portreg.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}

	// Suppress GORM logging; reservation conflicts are reported as errors,
	// not log noise.
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open port registry: %w", err)
	}
	if err := db.AutoMigrate(&Reservation{}); err != nil {
		return nil, fmt.Errorf("migrate port registry: %w", err)
	}
	return &Registry{db: db}, nil
}

// Reserve claims a port for the given process. A stale reservation left by a
// dead process is replaced; a reservation held by a live process yields
// ErrPortBusy. The alive callback decides liveness (see ProcessAlive).
func (r *Registry) Reserve(port, pid int, alive func(pid int) bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing Reservation
		err := tx.First(&existing, "port = ?", port).Error
		switch {
		case err == nil:
			if existing.PID != pid && alive != nil && alive(existing.PID) {
				return fmt.Errorf("port %d held by pid %d: %w", port, existing.PID, ErrPortBusy)
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Create(&Reservation{Port: port, PID: pid, CreatedAt: time.Now()}).Error
	})
}

// Release drops the reservation for a port. Releasing an unreserved port is
// a no-op.
func (r *Registry) Release(port int) error {
	return r.db.Delete(&Reservation{}, "port = ?", port).Error
}

// Prune removes reservations of processes that are no longer alive and
// returns how many rows were dropped.
func (r *Registry) Prune(alive func(pid int) bool) (int, error) {
	var all []Reservation
	if err := r.db.Find(&all).Error; err != nil {
		return 0, err
	}
	pruned := 0
	for _, res := range all {
		if alive != nil && alive(res.PID) {
			continue
		}
		if err := r.db.Delete(&res).Error; err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// ProcessAlive reports whether a process with the given pid exists. It is
// best effort: on platforms without signal 0 support the check degrades to
// "unknown means dead", which only risks replacing a reservation early.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
