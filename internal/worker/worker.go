package worker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"shopsync/internal/config"
	"shopsync/internal/logger"
	"shopsync/internal/queue"
	"shopsync/internal/sync"
)

// Timer intervals for the background mirror passes. The inventory
// lookback (35m) deliberately overlaps the 15m interval so a missed
// run is covered by the next window instead of leaving a gap.
const (
	catalogInterval   = 30 * time.Minute
	inventoryInterval = 15 * time.Minute
	customersInterval = 30 * time.Minute

	inventoryLookbackMinutes = 35
	customersLookbackMinutes = 35
)

// Worker consumes on-demand sync jobs from kafka and fires the
// periodic mirror passes.
type Worker struct {
	config    *config.Config
	logger    *logger.Logger
	reader    *kafka.Reader
	catalog   *sync.CatalogMirror
	inventory *sync.InventoryReconciler
	customers *sync.CustomerMirror
	stop      chan struct{}
}

func New(cfg *config.Config, log *logger.Logger, catalog *sync.CatalogMirror, inventory *sync.InventoryReconciler, customers *sync.CustomerMirror) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.KafkaBrokers, ","),
		GroupID:        "shopsync-worker",
		Topic:          queue.Topic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:    cfg,
		logger:    log,
		reader:    reader,
		catalog:   catalog,
		inventory: inventory,
		customers: customers,
		stop:      make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, consuming jobs and running schedules...")

	go w.consume()

	catalogTicker := time.NewTicker(catalogInterval)
	inventoryTicker := time.NewTicker(inventoryInterval)
	customersTicker := time.NewTicker(customersInterval)
	defer catalogTicker.Stop()
	defer inventoryTicker.Stop()
	defer customersTicker.Stop()

	for {
		select {
		case <-catalogTicker.C:
			w.runCatalog()
		case <-inventoryTicker.C:
			w.runInventory()
		case <-customersTicker.C:
			w.runCustomers()
		case <-w.stop:
			return
		}
	}
}

func (w *Worker) consume() {
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			continue
		}

		var job queue.Job
		if err := json.Unmarshal(message.Value, &job); err != nil {
			w.logger.Error("Failed to parse job: %v", err)
			continue
		}

		w.logger.Debug("Received job: %s", job.Type)
		switch job.Type {
		case queue.JobCatalog:
			w.runCatalog()
		case queue.JobCustomers:
			w.runCustomers()
		default:
			w.logger.Warn("Unknown job type: %s", job.Type)
		}
	}
}

func (w *Worker) runCatalog() {
	processed, err := w.catalog.MirrorCatalog(context.Background())
	if err != nil {
		w.logger.Error("Catalog pass failed: %v", err)
		return
	}
	w.logger.Info("Catalog pass complete: %d products processed", processed)
}

func (w *Worker) runInventory() {
	checked, updated, err := w.inventory.ReconcileInventory(context.Background(), inventoryLookbackMinutes)
	if err != nil {
		w.logger.Error("Inventory pass failed: %v", err)
		return
	}
	w.logger.Info("Inventory pass complete: %d checked, %d updated", checked, updated)
}

func (w *Worker) runCustomers() {
	pushed, err := w.customers.MirrorToStorefront(context.Background(), customersLookbackMinutes)
	if err != nil {
		w.logger.Error("Customer pass failed: %v", err)
		return
	}
	w.logger.Info("Customer pass complete: %d pushed", pushed)
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stop)
	w.reader.Close()
}
