package bufmon

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"mtcircbuf/pkg/mtbuf"

	"github.com/pkg/errors"
)

var logger = log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lshortfile)

// BufMon drives a string buffer, both one command at a time from the repl
// and with background producer/consumer/reader workers.
type BufMon struct {
	Buff *mtbuf.Buffer[string]

	mu   sync.Mutex
	seq  int // next auto-generated value suffix
	stop chan struct{}
	wg   sync.WaitGroup
}

func New(capacity int, lockTimeout time.Duration) *BufMon {
	return &BufMon{Buff: mtbuf.NewWithTimeout[string](capacity, lockTimeout)}
}

func (m *BufMon) nextValue() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := fmt.Sprintf("item-%d", m.seq)
	m.seq++
	return v
}

// WriteOnce produces a single value. An empty value is auto-generated.
func (m *BufMon) WriteOnce(value string) (int, bool, error) {
	if value == "" {
		value = m.nextValue()
	}
	wa, overwrite, err := m.Buff.WriteNext()
	if err != nil {
		return 0, false, err
	}
	defer wa.Release()
	slot := wa.Slot()
	*wa.Data = value
	return slot, overwrite, nil
}

// ConsumeOnce drains the oldest consumable slot.
func (m *BufMon) ConsumeOnce() (int, string, error) {
	ca, err := m.Buff.ConsumeNextAvailable()
	if err != nil {
		return 0, "", err
	}
	defer ca.Release()
	return ca.Slot(), *ca.Data, nil
}

// PeekNewest reads the most recently produced slot without draining it.
func (m *BufMon) PeekNewest() (int, string, error) {
	ra, err := m.Buff.ReadNewestAvailable()
	if err != nil {
		return 0, "", err
	}
	defer ra.Release()
	return ra.Slot(), *ra.Data, nil
}

// ReadAt reads a specific slot without draining it.
func (m *BufMon) ReadAt(slot int) (string, error) {
	ra, err := m.Buff.ReadSlot(slot)
	if err != nil {
		return "", err
	}
	defer ra.Release()
	return *ra.Data, nil
}

// StartWorkers launches one producer, one consumer and one peek reader, in
// the shape of the original soak harness. The consumer runs at a quarter of
// the producer's pace so overwrites eventually show up.
func (m *BufMon) StartWorkers(interval time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return errors.New("workers already running")
	}
	stop := make(chan struct{})
	m.stop = stop
	m.wg.Add(3)

	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
			slot, overwrite, err := m.WriteOnce("")
			if err != nil {
				logger.Printf("producer: %v", err)
				continue
			}
			if overwrite {
				logger.Printf("producer: overwrote slot %d", slot)
			}
		}
	}()

	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-time.After(4 * interval):
			}
			if _, _, err := m.ConsumeOnce(); err != nil {
				logger.Printf("consumer: %v", err)
			}
		}
	}()

	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * interval):
			}
			if _, _, err := m.PeekNewest(); err != nil {
				logger.Printf("reader: %v", err)
			}
		}
	}()

	return nil
}

// StopWorkers stops the background workers and waits for them to exit.
func (m *BufMon) StopWorkers() error {
	m.mu.Lock()
	stop := m.stop
	m.stop = nil
	m.mu.Unlock()
	if stop == nil {
		return errors.New("workers not running")
	}
	close(stop)
	m.wg.Wait()
	return nil
}
