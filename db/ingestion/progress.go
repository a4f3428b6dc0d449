package ingestion

import (
	"sync"
	"time"
)

// Import phases, in run order
const (
	PhaseInitialize       = "initialize"
	PhaseInstallInstances = "install-instances"
	PhaseInstallStorages  = "install-storages"
	PhaseInstallSupport   = "install-support"
)

// Workload is the number of phases of a run
const Workload = 4

// Progress receives the checkpoints of a run
type Progress interface {
	// Start opens a run of workload steps
	Start(node string, workload int)
	// NextStep enters a phase
	NextStep(node, phase string)
}

// NopProgress ignores every checkpoint
type NopProgress struct{}

func (NopProgress) Start(string, int)       {}
func (NopProgress) NextStep(string, string) {}

// ImportStatus tracks the last run of a node. It is safe for concurrent use.
type ImportStatus struct {
	mu sync.RWMutex
	s  StatusSnapshot
}

// StatusSnapshot is a point in time copy of an ImportStatus
type StatusSnapshot struct {
	Node     string `json:"node"`
	Phase    string `json:"phase,omitempty"`
	Done     int    `json:"done"`
	Workload int    `json:"workload"`
	Running  bool   `json:"running"`

	NbInstancePrices int `json:"nb_instance_prices"`
	NbInstanceTypes  int `json:"nb_instance_types"`
	NbLocations      int `json:"nb_locations"`
	NbStorageTypes   int `json:"nb_storage_types"`
	NbSupportPrices  int `json:"nb_support_prices"`

	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// NewImportStatus creates an idle status
func NewImportStatus() *ImportStatus {
	return &ImportStatus{}
}

// Start resets the status for a new run
func (s *ImportStatus) Start(node string, workload int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s = StatusSnapshot{
		Node:     node,
		Workload: workload,
		Running:  true,
		Start:    time.Now(),
	}
}

// NextStep enters a phase
func (s *ImportStatus) NextStep(node, phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Node = node
	s.s.Phase = phase
	s.s.Done++
}

// Finish closes the run with its result or failure
func (s *ImportStatus) Finish(result *Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.s.End = &now
	s.s.Running = false
	if err != nil {
		s.s.LastError = err.Error()
	}
	if result != nil {
		s.s.NbInstancePrices = result.InstancePrices
		s.s.NbInstanceTypes = result.InstanceTypes
		s.s.NbLocations = result.Locations
		s.s.NbStorageTypes = result.StorageTypes
		s.s.NbSupportPrices = result.SupportPrices
	}
}

// Snapshot returns the current status
func (s *ImportStatus) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.s
	if s.s.End != nil {
		end := *s.s.End
		snapshot.End = &end
	}
	return snapshot
}
