package project

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
)

// Directory maps project addresses to their backends.
type Directory struct {
	mu       sync.RWMutex
	backends map[common.Address]coordinator.ProjectBackend
}

var _ coordinator.Directory = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{backends: make(map[common.Address]coordinator.ProjectBackend)}
}

// Register adds a backend for project. A project can be registered once.
func (d *Directory) Register(project common.Address, backend coordinator.ProjectBackend) error {
	if project == (common.Address{}) {
		return errors.Wrap(model.ErrInvalidArgument, "project address is zero")
	}
	if backend == nil {
		return errors.Wrapf(model.ErrInvalidArgument, "nil backend for project %s", project.Hex())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.backends[project]; ok {
		return errors.Wrapf(model.ErrInvalidArgument, "project %s already registered", project.Hex())
	}
	d.backends[project] = backend
	return nil
}

func (d *Directory) Backend(project common.Address) (coordinator.ProjectBackend, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	backend, ok := d.backends[project]
	return backend, ok
}

// Projects returns the registered project addresses in ascending order.
func (d *Directory) Projects() []common.Address {
	d.mu.RLock()
	projects := lo.Keys(d.backends)
	d.mu.RUnlock()

	sort.Slice(projects, func(i, j int) bool {
		return bytes.Compare(projects[i][:], projects[j][:]) < 0
	})
	return projects
}
