package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads and parses Task definitions.
type Manager struct {
	logger             *zap.Logger
	defaultSlippageBps uint64
	protocolSlippage   map[string]uint64
}

type tasksFile struct {
	Tasks []*Task `yaml:"tasks"`
}

// NewManager constructs a Manager. Tasks without slippage_bps get defaultSlippageBps.
func NewManager(logger *zap.Logger, defaultSlippageBps uint64) *Manager {
	return &Manager{
		logger:             logger.Named("task"),
		defaultSlippageBps: defaultSlippageBps,
		protocolSlippage:   make(map[string]uint64),
	}
}

// SetProtocolSlippage overrides the default slippage for tasks on one protocol.
func (m *Manager) SetProtocolSlippage(protocol string, bps uint64) {
	if bps > 0 {
		m.protocolSlippage[strings.ToLower(protocol)] = bps
	}
}

func (m *Manager) slippageFor(protocol string) uint64 {
	if bps, ok := m.protocolSlippage[strings.ToLower(protocol)]; ok {
		return bps
	}
	return m.defaultSlippageBps
}

// Prepare fills defaults into t and validates it.
func (m *Manager) Prepare(t *Task) error {
	if t.SlippageBps == 0 {
		t.SlippageBps = m.slippageFor(t.Protocol)
	}
	return t.Validate()
}

// LoadTasks reads tasks from a YAML file. Invalid entries are logged and skipped.
func (m *Manager) LoadTasks(path string) ([]*Task, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return m.ParseTasks(data)
}

// ParseTasks parses the YAML body of a tasks file.
func (m *Manager) ParseTasks(data []byte) ([]*Task, error) {
	var file tasksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in configuration")
	}

	tasks := make([]*Task, 0, len(file.Tasks))
	for i, t := range file.Tasks {
		if t == nil {
			continue
		}
		t.ID = i
		if err := m.Prepare(t); err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.Int("index", i),
				zap.String("task_name", t.Name),
				zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}
	m.logger.Info("Tasks loaded", zap.Int("count", len(tasks)))
	return tasks, nil
}
