package workers

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const DAY_FOR_MONTHLY_RUNS = 1

type Worker struct {
	Name     string
	Interval time.Duration
	Monthly  bool
	Run      func()
	Stop     chan struct{}
	now      func() time.Time
}

func NewWorker(name string, interval time.Duration, run func(), monthly bool) *Worker {
	return &Worker{
		Name:     name,
		Interval: interval,
		Monthly:  monthly,
		Run:      run,
		Stop:     make(chan struct{}),
		now:      time.Now,
	}
}

func (w *Worker) due() bool {
	return !w.Monthly || w.now().Day() == DAY_FOR_MONTHLY_RUNS
}

// Start runs the worker right away and then on every tick until StopWorker is called.
// Monthly workers only run on the first day of the month.
func (w *Worker) Start() {
	log.Infof("[%s] worker started, interval %s, monthly %t", w.Name, w.Interval, w.Monthly)
	if w.due() {
		w.Run()
	}
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if w.due() {
				w.Run()
			}
		case <-w.Stop:
			log.Infof("[%s] worker stopped", w.Name)
			return
		}
	}
}

func (w *Worker) StopWorker() {
	w.Stop <- struct{}{}
}
