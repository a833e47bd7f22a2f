package authcore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avirel-labs/authcore/notify"
)

// shouldNotify decides whether a successful login requires user
// awareness. Only deliberate sign-ins to a service in the configured set
// qualify; token refreshes and other reasons stay silent.
func (e *Engine) shouldNotify(opts LoginOptions) bool {
	if !e.config.Notify.Enabled || e.notifier == nil {
		return false
	}
	if opts.Reason != "signin" {
		return false
	}
	for _, svc := range e.config.Notify.Services {
		if svc == opts.Service {
			return true
		}
	}
	return false
}

// notifier dispatches sign-in notifications off the login path. Delivery
// is fire and forget: the login outcome is decided before the payload is
// enqueued, and a full buffer drops rather than blocks when configured to.
type notifier struct {
	mailer  notify.Mailer
	signer  *notify.LinkSigner
	baseURL string
	log     logrus.FieldLogger

	queue    chan notifyJob
	dropFull bool

	// onResult observes each delivery attempt; set once before the worker
	// starts accepting jobs.
	onResult func(job notifyJob, err error)

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

type notifyJob struct {
	uid     string
	payload notify.Payload
}

func newNotifier(cfg NotifyConfig, mailer notify.Mailer, signer *notify.LinkSigner, log logrus.FieldLogger, onResult func(notifyJob, error)) *notifier {
	n := &notifier{
		mailer:   mailer,
		signer:   signer,
		baseURL:  cfg.LinkBaseURL,
		log:      log,
		queue:    make(chan notifyJob, cfg.BufferSize),
		dropFull: cfg.DropIfFull,
		onResult: onResult,
		done:     make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case job := <-n.queue:
			n.deliver(job)
		case <-n.done:
			// Drain what was accepted before shutdown.
			for {
				select {
				case job := <-n.queue:
					n.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (n *notifier) deliver(job notifyJob) {
	// Delivery outlives the originating request; bound it independently.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := n.mailer.Send(ctx, job.payload); err != nil {
		if n.log != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"uid":     job.uid,
				"service": job.payload.Service,
			}).Warn("sign-in notification delivery failed")
		}
		if n.onResult != nil {
			n.onResult(job, err)
		}
		return
	}
	if n.onResult != nil {
		n.onResult(job, nil)
	}
}

// enqueue hands a payload to the delivery worker. It reports whether the
// payload was accepted; a false return means the buffer was full and the
// notifier is configured to drop.
func (n *notifier) enqueue(job notifyJob) bool {
	select {
	case <-n.done:
		return false
	default:
	}

	if n.dropFull {
		select {
		case n.queue <- job:
			return true
		default:
			return false
		}
	}

	select {
	case n.queue <- job:
		return true
	case <-n.done:
		return false
	}
}

func (n *notifier) close() {
	n.closeOnce.Do(func() {
		close(n.done)
	})
	n.wg.Wait()
}

// dispatchNotification builds the payload for one successful login and
// queues it. Failures here never surface to the login caller.
func (e *Engine) dispatchNotification(ctx context.Context, acct *Account, opts LoginOptions) {
	if e.notifier == nil {
		return
	}

	// The builder refuses a mailer without link configuration, so every
	// payload that reaches the queue carries a confirmation link.
	cid := uuid.NewString()
	tok, err := e.notifier.signer.Sign(acct.UID, acct.Email, cid, time.Now().UTC())
	if err != nil {
		e.metrics.Inc(MetricNotifyFailed)
		e.emitAudit(ctx, auditNotifyFailed, false, acct.UID, internalError(err), loginMetadata(opts.Service, opts.Reason))
		if e.log != nil {
			e.log.WithError(err).Warn("confirmation link signing failed")
		}
		return
	}

	payload := notify.Payload{
		Email:         acct.Email,
		Service:       opts.Service,
		Reason:        opts.Reason,
		CorrelationID: cid,
		Link:          notify.BuildLink(e.notifier.baseURL, acct.Email, opts.Service, tok),
	}

	if !e.notifier.enqueue(notifyJob{uid: acct.UID, payload: payload}) {
		e.metrics.Inc(MetricNotifyFailed)
		e.emitAudit(ctx, auditNotifyFailed, false, acct.UID, nil, loginMetadata(opts.Service, opts.Reason))
	}
}
