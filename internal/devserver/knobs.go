package devserver

import (
	"sync/atomic"
	"time"
)

// StatusPageExpired is the status the backend uses for a stale CSRF/session page.
const StatusPageExpired = 419

// MaintenanceMessage is the error text the backend leaks while a deploy is
// half-applied.
const MaintenanceMessage = `Attempt to read property "id" on null`

// Knobs inject faults into the reference backend. All methods are safe for
// concurrent use.
type Knobs struct {
	pageExpired    atomic.Bool
	maintenance    atomic.Bool
	omitExpiry     atomic.Bool
	malformedLogin atomic.Bool
	latency        atomic.Int64
}

// SetPageExpired makes every request answer 419.
func (k *Knobs) SetPageExpired(v bool) { k.pageExpired.Store(v) }

// PageExpired reports the 419 knob.
func (k *Knobs) PageExpired() bool { return k.pageExpired.Load() }

// SetMaintenance makes login fail with a 500 carrying MaintenanceMessage.
func (k *Knobs) SetMaintenance(v bool) { k.maintenance.Store(v) }

// Maintenance reports the maintenance knob.
func (k *Knobs) Maintenance() bool { return k.maintenance.Load() }

// SetOmitExpiry drops token_expires_at from login responses.
func (k *Knobs) SetOmitExpiry(v bool) { k.omitExpiry.Store(v) }

// OmitExpiry reports the omit-expiry knob.
func (k *Knobs) OmitExpiry() bool { return k.omitExpiry.Load() }

// SetMalformedLogin makes login succeed without a token.
func (k *Knobs) SetMalformedLogin(v bool) { k.malformedLogin.Store(v) }

// MalformedLogin reports the malformed-login knob.
func (k *Knobs) MalformedLogin() bool { return k.malformedLogin.Load() }

// SetLatency delays every response by d.
func (k *Knobs) SetLatency(d time.Duration) { k.latency.Store(int64(d)) }

// Latency returns the injected delay.
func (k *Knobs) Latency() time.Duration { return time.Duration(k.latency.Load()) }
