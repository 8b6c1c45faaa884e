package stats

import (
	"encoding/json"
	"expvar"
	"log"
	"net/http"
	"time"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater exports canvas metrics over /debug/vars. Counter bumps are
// funneled through a buffered channel so callers never contend on the map.
type StatsUpdater struct {
	log        *log.Logger
	vars       *expvar.Map
	updateChan chan *metricUpdate
}

type metricUpdate struct {
	name  string
	delta int
}

func NewStatsUpdater(mux *http.ServeMux, logger *log.Logger) *StatsUpdater {
	su := &StatsUpdater{
		log:        logger,
		updateChan: make(chan *metricUpdate, 512),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.vars = expvar.NewMap("pixelboard-stats")

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return su
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		data[kv.Key] = value
	})

	json.NewEncoder(w).Encode(data)
}

// applyUpdates drains the channel until Stop. Updates for names that were
// never registered are logged and dropped.
func (su *StatsUpdater) applyUpdates() {
	for req := range su.updateChan {
		counter, ok := su.vars.Get(req.name).(*expvar.Int)
		if !ok {
			su.log.Printf("dropping update for unknown metric %q", req.name)
			continue
		}

		counter.Add(int64(req.delta))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- &metricUpdate{name: name, delta: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.updateChan <- &metricUpdate{name: name, delta: -1}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, expvar.NewInt(name))
}

func (su *StatsUpdater) Run() {
	go su.applyUpdates()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}
