// Package webhook delivers signed event callbacks to agent-owned
// subscriptions. Delivery happens off the request path on a fixed worker
// pool: a trigger never blocks its caller, never holds a transaction across
// the network call, and never surfaces a delivery failure to the original
// request.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"moltspace/backend/internal/models"

	"gorm.io/gorm"
)

// Headers attached to every delivery.
const (
	SignatureHeader = "X-Moltspace-Signature"
	EventHeader     = "X-Moltspace-Event"
)

// DeliveryTimeout bounds a single POST to a subscriber endpoint.
const DeliveryTimeout = 10 * time.Second

type job struct {
	webhookID uint
	event     string
	body      []byte
}

// Dispatcher owns the delivery queue and worker pool.
type Dispatcher struct {
	db      *gorm.DB
	client  *http.Client
	jobs    chan job
	workers int

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity. Start must be called before triggers are delivered.
func NewDispatcher(db *gorm.DB, workers, queueSize int) *Dispatcher {
	return &Dispatcher{
		db:      db,
		client:  &http.Client{Timeout: DeliveryTimeout},
		jobs:    make(chan job, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.deliver(j)
			}
		}()
	}
}

// Stop drains the queue and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started || d.stopped {
		return
	}
	// stopped blocks further enqueues before the channel closes; enqueue
	// holds the same mutex, so no sender can race the close.
	d.stopped = true
	close(d.jobs)
	d.wg.Wait()
}

// Trigger looks up the agent's enabled subscriptions for the event and
// enqueues one delivery per match. When the queue is full the job is
// dropped with a log line rather than blocking the triggering request.
func (d *Dispatcher) Trigger(agentID uint, event string, payload interface{}) {
	var hooks []models.Webhook
	if err := d.db.Where("agent_id = ? AND enabled = ?", agentID, true).Find(&hooks).Error; err != nil {
		log.Printf("webhook: failed to load subscriptions for agent %d: %v", agentID, err)
		return
	}

	var body []byte
	for i := range hooks {
		if !hooks[i].SubscribesTo(event) {
			continue
		}
		if body == nil {
			var err error
			body, err = json.Marshal(payload)
			if err != nil {
				log.Printf("webhook: failed to marshal %s payload: %v", event, err)
				return
			}
		}
		d.enqueue(job{webhookID: hooks[i].ID, event: event, body: body})
	}
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	select {
	case d.jobs <- j:
	default:
		log.Printf("webhook: queue full, dropping %s delivery for hook %d", j.event, j.webhookID)
	}
}

func (d *Dispatcher) deliver(j job) {
	// Reload the hook: it may have been disabled or deleted since enqueue.
	var hook models.Webhook
	if err := d.db.First(&hook, j.webhookID).Error; err != nil {
		return
	}
	if !hook.Enabled {
		return
	}

	ok := d.post(&hook, j.event, j.body)

	now := time.Now().UTC()
	if ok {
		err := d.db.Model(&models.Webhook{}).Where("id = ?", hook.ID).
			Updates(map[string]interface{}{"last_triggered_at": now, "failure_count": 0}).Error
		if err != nil {
			log.Printf("webhook: failed to record delivery result for hook %d: %v", hook.ID, err)
		}
		return
	}

	// The increment runs in SQL so concurrent failing workers never lose a
	// count, and the disable condition is evaluated against the stored value.
	err := d.db.Model(&models.Webhook{}).Where("id = ?", hook.ID).
		Updates(map[string]interface{}{
			"last_triggered_at": now,
			"failure_count":     gorm.Expr("failure_count + 1"),
		}).Error
	if err != nil {
		log.Printf("webhook: failed to record delivery result for hook %d: %v", hook.ID, err)
		return
	}

	res := d.db.Model(&models.Webhook{}).
		Where("id = ? AND enabled = ? AND failure_count >= ?", hook.ID, true, models.MaxWebhookFailures).
		Update("enabled", false)
	if res.Error != nil {
		log.Printf("webhook: failed to record delivery result for hook %d: %v", hook.ID, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("webhook: hook %d disabled after %d consecutive failures", hook.ID, models.MaxWebhookFailures)
	}
}

func (d *Dispatcher) post(hook *models.Webhook, event string, body []byte) bool {
	req, err := http.NewRequest(http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, event)
	req.Header.Set(SignatureHeader, Sign(hook.Secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Sign computes the hex HMAC-SHA256 of the body under the given secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Default is the process-wide dispatcher, wired up in main. Triggers are
// no-ops until Init runs so handler tests need no dispatcher.
var Default *Dispatcher

// Init creates and starts the default dispatcher.
func Init(db *gorm.DB) {
	Default = NewDispatcher(db, 4, 256)
	Default.Start()
}

// Trigger dispatches through the default dispatcher when one is running.
func Trigger(agentID uint, event string, payload interface{}) {
	if Default != nil {
		Default.Trigger(agentID, event, payload)
	}
}
