package service

import (
	"context"
	"fmt"
	"sync"

	"courierboard/internal/courier/data"
)

type DriverAPI interface {
	UpdateDriverOnline(ctx context.Context, driverID, code string, online bool) (data.Driver, error)
}

// DriverStatus holds the local copy of the driver profile and the
// online/offline toggle.
type DriverStatus struct {
	mux      sync.Mutex
	current  data.Driver
	identity Identity
	api      DriverAPI
	feed     Notifier
}

func NewDriverStatus(initial data.Driver, identity Identity, api DriverAPI, feed Notifier) *DriverStatus {
	return &DriverStatus{
		current:  initial,
		identity: identity,
		api:      api,
		feed:     feed,
	}
}

// SetOnline asks the backend to flip the flag and applies the confirmed
// profile locally.
func (d *DriverStatus) SetOnline(ctx context.Context, online bool) (data.Driver, error) {
	driver, err := d.api.UpdateDriverOnline(ctx, d.identity.DriverID, d.identity.Code, online)
	if err != nil {
		return data.Driver{}, fmt.Errorf("online toggle rejected: %w", err)
	}
	d.mux.Lock()
	d.current = driver
	d.mux.Unlock()
	return driver, nil
}

// ApplyStatus folds a driver_status push event into the local profile.
func (d *DriverStatus) ApplyStatus(online bool) {
	d.mux.Lock()
	changed := d.current.Online != online
	d.current.Online = online
	d.mux.Unlock()
	if !changed {
		return
	}
	if online {
		d.feed.Push("You are online", "")
	} else {
		d.feed.Push("You are offline", "")
	}
}

// Update replaces the profile with a resync result.
func (d *DriverStatus) Update(driver data.Driver) {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.current = driver
}

func (d *DriverStatus) Profile() data.Driver {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.current
}
