package cardroom

import (
	"sort"
	"sync"
)

// TableSummary is the lobby-facing projection of one table; listing never
// blocks an in-progress hand.
type TableSummary struct {
	TableID    string      `json:"table_id"`
	Name       string      `json:"name"`
	Format     GameFormat  `json:"format"`
	SB         int64       `json:"sb"`
	BB         int64       `json:"bb"`
	Players    int         `json:"players"`
	MaxPlayers int         `json:"max_players"`
	Status     TableStatus `json:"status"`
}

type Manager interface {
	CreateTable(options *TableEngineOptions, callbacks *TableEngineCallbacks, setting TableSetting, opts ...TableEngineOpt) (TableEngine, error)
	GetTable(tableID string) (TableEngine, error)
	CloseTable(tableID string) error
	ListTables() []TableSummary
	Count() int
	Reset()
}

type manager struct {
	tables sync.Map
}

func NewManager() Manager {
	return &manager{}
}

func (m *manager) CreateTable(options *TableEngineOptions, callbacks *TableEngineCallbacks, setting TableSetting, opts ...TableEngineOpt) (TableEngine, error) {
	if options == nil {
		options = NewTableEngineOptions()
	}
	if callbacks == nil {
		callbacks = NewTableEngineCallbacks()
	}

	te := NewTableEngine(options, opts...)
	te.OnEvent(callbacks.OnEvent)
	te.OnError(callbacks.OnError)
	te.OnClosed(callbacks.OnClosed)

	if err := te.CreateTable(setting); err != nil {
		return nil, err
	}

	m.tables.Store(te.TableID(), te)
	return te, nil
}

func (m *manager) GetTable(tableID string) (TableEngine, error) {
	te, exist := m.tables.Load(tableID)
	if !exist {
		return nil, ErrTableNotFound
	}
	return te.(TableEngine), nil
}

func (m *manager) CloseTable(tableID string) error {
	te, err := m.GetTable(tableID)
	if err != nil {
		return err
	}

	if err := te.CloseTable(); err != nil {
		return err
	}

	m.tables.Delete(tableID)
	return nil
}

func (m *manager) ListTables() []TableSummary {
	summaries := make([]TableSummary, 0)
	m.tables.Range(func(_, value any) bool {
		te := value.(TableEngine)
		meta := te.Meta()
		summaries = append(summaries, TableSummary{
			TableID:    te.TableID(),
			Name:       meta.Name,
			Format:     meta.Format,
			SB:         meta.SB,
			BB:         meta.BB,
			Players:    len(te.Roster()),
			MaxPlayers: meta.MaxPlayers,
			Status:     te.Status(),
		})
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

func (m *manager) Count() int {
	n := 0
	m.tables.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (m *manager) Reset() {
	m.tables.Range(func(key, value any) bool {
		value.(TableEngine).CloseTable()
		m.tables.Delete(key)
		return true
	})
}
