package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/gojags/gojags/model"
)

type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	Phase        *expvar.String
	Chains       *expvar.Int
	Burnin       *expvar.Int
	Samples      *expvar.Int
	Thin         *expvar.Int
	MaxSeconds   *expvar.Int
	RunTime      *expvar.Float
	TotalSamples *expvar.Int

	LastMeanHellinger *expvar.Float
	LastMaxHellinger  *expvar.Float
	LastMeanJSD       *expvar.Float
	LastMaxJSD        *expvar.Float
}

// Start begins the monitor on the given address
func (m *monitor) Start(addr string) error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("gojags-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.Phase = expvar.NewString("Phase")
	m.Chains = expvar.NewInt("Chain-Count")
	m.Burnin = expvar.NewInt("Burn-In")
	m.Samples = expvar.NewInt("Samples-Per-Chain")
	m.Thin = expvar.NewInt("Thinning")
	m.MaxSeconds = expvar.NewInt("Max-Seconds")
	m.RunTime = expvar.NewFloat("Run-Time")
	m.TotalSamples = expvar.NewInt("Total-Samples")

	m.LastMeanHellinger = expvar.NewFloat("Last-Mean-Hellinger")
	m.LastMaxHellinger = expvar.NewFloat("Last-Max-Hellinger")
	m.LastMeanJSD = expvar.NewFloat("Last-Mean-JSD")
	m.LastMaxJSD = expvar.NewFloat("Last-Max-JSD")

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

// SetDistances publishes the latest split-half distance suite
func (m *monitor) SetDistances(ds *model.DistanceSuite) {
	if m.info == nil || ds == nil {
		return
	}
	m.LastMeanHellinger.Set(ds.MeanHellinger)
	m.LastMaxHellinger.Set(ds.MaxHellinger)
	m.LastMeanJSD.Set(ds.MeanJSDiverge)
	m.LastMaxJSD.Set(ds.MaxJSDiverge)
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
