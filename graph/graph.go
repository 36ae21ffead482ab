package graph

import (
	"sort"
	"time"

	"github.com/viveknathani/dblineage/database"
)

type Role string

type Status string

type LoadType string

const (
	RoleSource Role = "SOURCE"
	RoleTarget Role = "TARGET"

	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPending Status = "PENDING"

	LoadFull LoadType = "FULL"

	MappingTableToTable = "Table → Table"
)

// Position is the top-left corner of a node box.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LineageNode is one table occurrence in the graph. The same table may
// appear once as a source and once as a target.
type LineageNode struct {
	ID           string        `json:"id"`
	Role         Role          `json:"role"`
	DatabaseType database.Type `json:"databaseType"`
	Database     string        `json:"database"`
	Schema       string        `json:"schema"`
	Table        string        `json:"table"`
	RowCount     int64         `json:"rowCount"`
	ColumnCount  int           `json:"columnCount"`
	LastUpdated  time.Time     `json:"lastUpdated"`
	LoadType     LoadType      `json:"loadType"`
	Status       Status        `json:"status"`
	Position     Position      `json:"position"`
}

// Label is the text searched by view filters: "database schema.table".
func (n LineageNode) Label() string {
	return n.Database + " " + n.Schema + "." + n.Table
}

// LineageEdge is a directed source to target mapping.
type LineageEdge struct {
	ID                string    `json:"id"`
	Source            string    `json:"source"`
	Target            string    `json:"target"`
	MappingType       string    `json:"mappingType"`
	LoadMode          LoadType  `json:"loadMode"`
	LastExecutionTime time.Time `json:"lastExecutionTime"`
}

type Summary struct {
	Sources int `json:"sources"`
	Targets int `json:"targets"`
	Links   int `json:"links"`
}

// LineageGraph holds nodes and edges sorted by id. Width and Height are the
// extent of the layout once positioned.
type LineageGraph struct {
	Nodes  []LineageNode `json:"nodes"`
	Edges  []LineageEdge `json:"edges"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
}

// Summary counts nodes per role and edges.
func (g *LineageGraph) Summary() Summary {
	var s Summary
	if g == nil {
		return s
	}
	for _, n := range g.Nodes {
		switch n.Role {
		case RoleSource:
			s.Sources++
		case RoleTarget:
			s.Targets++
		}
	}
	s.Links = len(g.Edges)
	return s
}

// IsEmpty reports whether the graph has no nodes.
func (g *LineageGraph) IsEmpty() bool {
	return g == nil || len(g.Nodes) == 0
}

// Node looks up a node by id.
func (g *LineageGraph) Node(id string) (LineageNode, bool) {
	if g == nil {
		return LineageNode{}, false
	}
	i := sort.Search(len(g.Nodes), func(i int) bool { return g.Nodes[i].ID >= id })
	if i < len(g.Nodes) && g.Nodes[i].ID == id {
		return g.Nodes[i], true
	}
	return LineageNode{}, false
}

// NodeID returns the role-prefixed id of a table.
func NodeID(role Role, key TableKey) string {
	if role == RoleSource {
		return "src:" + key.String()
	}
	return "tgt:" + key.String()
}

// EdgeID returns the id of the edge between two node ids.
func EdgeID(sourceID, targetID string) string {
	return sourceID + "->" + targetID
}

// Inputs are everything a build reads. Snapshots are not modified.
type Inputs struct {
	Source      *database.SchemaSnapshot
	Target      *database.SchemaSnapshot
	Selected    []string
	LastUpdated time.Time
}

// tableStats is what a snapshot knows about one table.
type tableStats struct {
	schema      string
	name        string
	rowCount    int64
	columnCount int
}

type snapshotIndex struct {
	snap   *database.SchemaSnapshot
	tables map[TableKey]*tableStats
}

// indexSnapshot groups table rows and column counts by normalized key. The
// first listing of a table wins; columns of unlisted tables are still counted.
func indexSnapshot(snap *database.SchemaSnapshot) snapshotIndex {
	idx := snapshotIndex{snap: snap, tables: make(map[TableKey]*tableStats)}
	if snap == nil {
		return idx
	}

	for _, t := range snap.Tables {
		key := Normalize(t.Schema, t.Name)
		if _, ok := idx.tables[key]; ok {
			continue
		}
		idx.tables[key] = &tableStats{schema: t.Schema, name: t.Name, rowCount: t.RowCount}
	}

	for _, c := range snap.Columns {
		key := Normalize(c.Schema, c.Table)
		stats, ok := idx.tables[key]
		if !ok {
			stats = &tableStats{schema: c.Schema, name: c.Table}
			idx.tables[key] = stats
		}
		stats.columnCount++
	}

	return idx
}

func (idx snapshotIndex) node(role Role, key TableKey, lastUpdated time.Time) LineageNode {
	n := LineageNode{
		ID:           NodeID(role, key),
		Role:         role,
		DatabaseType: idx.snap.DatabaseType(),
		Schema:       key.Schema,
		Table:        key.Name,
		LastUpdated:  lastUpdated,
		LoadType:     LoadFull,
		Status:       StatusSuccess,
	}
	if idx.snap != nil {
		n.Database = idx.snap.Location.Database
	}
	if stats, ok := idx.tables[key]; ok {
		n.Schema = displayIdent(stats.schema, key.Schema)
		n.Table = displayIdent(stats.name, key.Name)
		n.RowCount = stats.rowCount
		n.ColumnCount = stats.columnCount
	}
	return n
}

// displayIdent keeps the snapshot spelling of an identifier minus
// surrounding quotes and whitespace.
func displayIdent(raw, fallback string) string {
	s := unquote(raw)
	if s == "" {
		return fallback
	}
	return s
}

// nodeKey identifies a node independently of its id spelling.
type nodeKey struct {
	role Role
	key  TableKey
}

// Build assembles the lineage graph for the selected source tables. It is
// pure: identical inputs give identical, identically ordered output. Missing
// metadata degrades to zero counts or pending targets, never an error.
// Nodes are not positioned; see Positioned.
func Build(in Inputs) *LineageGraph {
	g := &LineageGraph{Nodes: []LineageNode{}, Edges: []LineageEdge{}}
	if in.Source == nil || in.Target == nil {
		return g
	}

	sources := indexSnapshot(in.Source)
	targets := indexSnapshot(in.Target)
	matcher := NewMatcher(in.Target)

	seenNodes := make(map[nodeKey]struct{})
	seenEdges := make(map[[2]nodeKey]struct{})

	for _, ref := range in.Selected {
		key := ParseTableRef(ref)
		if key.Name == "" {
			continue
		}

		source := nodeKey{RoleSource, key}
		sourceID := NodeID(RoleSource, key)
		if _, ok := seenNodes[source]; !ok {
			seenNodes[source] = struct{}{}
			g.Nodes = append(g.Nodes, sources.node(RoleSource, key, in.LastUpdated))
		}

		for _, candidate := range matcher.Match(key) {
			target := nodeKey{RoleTarget, candidate.Key}
			targetID := NodeID(RoleTarget, candidate.Key)
			if _, ok := seenNodes[target]; !ok {
				seenNodes[target] = struct{}{}
				node := targets.node(RoleTarget, candidate.Key, in.LastUpdated)
				if candidate.Virtual {
					node.Status = StatusPending
				}
				g.Nodes = append(g.Nodes, node)
			}

			if _, ok := seenEdges[[2]nodeKey{source, target}]; ok {
				continue
			}
			seenEdges[[2]nodeKey{source, target}] = struct{}{}
			g.Edges = append(g.Edges, LineageEdge{
				ID:                EdgeID(sourceID, targetID),
				Source:            sourceID,
				Target:            targetID,
				MappingType:       MappingTableToTable,
				LoadMode:          LoadFull,
				LastExecutionTime: in.LastUpdated,
			})
		}
	}

	sortByID(g)
	return g
}

func sortByID(g *LineageGraph) {
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })
	sort.Slice(g.Edges, func(i, j int) bool { return g.Edges[i].ID < g.Edges[j].ID })
}
