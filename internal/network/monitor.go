// Package network watches host connectivity and reports online/offline
// transitions. It subscribes to NetworkManager's StateChanged D-Bus signal;
// when the system bus or NetworkManager is unavailable it falls back to a
// periodic TCP reachability probe against the catalog host.
package network

import (
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/godbus/dbus/v5"
)

const (
	nmDest          = "org.freedesktop.NetworkManager"
	nmPath          = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmStateProperty = "org.freedesktop.NetworkManager.State"

	// NM_STATE_CONNECTED_GLOBAL: full internet reachability.
	nmStateConnectedGlobal = 70

	probeInterval = 30 * time.Second
	probeTimeout  = 5 * time.Second
)

// Monitor reports connectivity transitions through a callback. The callback
// fires only when the online state actually changes.
type Monitor struct {
	onChange func(online bool)
	logger   *log.Logger

	mu     sync.Mutex
	online bool
	known  bool

	conn    *dbus.Conn
	signals chan *dbus.Signal
	done    chan struct{}
	wg      sync.WaitGroup
}

// Watch starts a connectivity monitor. probeAddr is the host:port the
// fallback probe dials when NetworkManager cannot be watched; empty disables
// the fallback.
func Watch(probeAddr string, onChange func(online bool), logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	m := &Monitor{
		onChange: onChange,
		logger:   logger.With("component", "network"),
		done:     make(chan struct{}),
	}
	if m.subscribeNM() {
		return m
	}
	if probeAddr != "" {
		m.wg.Add(1)
		go m.probeLoop(probeAddr)
	}
	return m
}

// subscribeNM hooks the NetworkManager StateChanged signal. Returns false
// when the system bus or the signal match is unavailable.
func (m *Monitor) subscribeNM() bool {
	conn, err := dbus.SystemBus()
	if err != nil {
		m.logger.Debug("system bus unavailable, falling back to probe", "err", err)
		return false
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchSender(nmDest),
		dbus.WithMatchObjectPath(nmPath),
		dbus.WithMatchInterface(nmDest),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		m.logger.Debug("NetworkManager match failed, falling back to probe", "err", err)
		return false
	}
	m.conn = conn
	m.signals = make(chan *dbus.Signal, 16)
	conn.Signal(m.signals)

	// Seed from the current state so the first signal is a real transition.
	if v, err := conn.Object(nmDest, nmPath).GetProperty(nmStateProperty); err == nil {
		if state, ok := v.Value().(uint32); ok {
			m.mu.Lock()
			m.online = state >= nmStateConnectedGlobal
			m.known = true
			m.mu.Unlock()
		}
	}

	m.wg.Add(1)
	go m.signalLoop()
	return true
}

func (m *Monitor) signalLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case sig, ok := <-m.signals:
			if !ok {
				return
			}
			if sig.Name != nmDest+".StateChanged" || len(sig.Body) == 0 {
				continue
			}
			state, ok := sig.Body[0].(uint32)
			if !ok {
				continue
			}
			m.setOnline(state >= nmStateConnectedGlobal)
		}
	}
}

func (m *Monitor) probeLoop(addr string) {
	defer m.wg.Done()
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.setOnline(probeReachable(addr))
		}
	}
}

func probeReachable(addr string) bool {
	c, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		return false
	}
	c.Close()
	return true
}

// setOnline records the state and fires the callback on change only.
func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := !m.known || online != m.online
	m.online = online
	m.known = true
	m.mu.Unlock()
	if changed {
		m.logger.Info("connectivity changed", "online", online)
		m.onChange(online)
	}
}

// Close stops the monitor and waits for its goroutines.
func (m *Monitor) Close() {
	close(m.done)
	if m.conn != nil {
		m.conn.RemoveSignal(m.signals)
	}
	m.wg.Wait()
}
