package hnsw

import "fmt"

// Stats returns statistics about the HNSW graph.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, maxLevel := g.entry()
	levels := make([]LevelStats, maxLevel+1)
	for l := range levels {
		levels[l].Level = l
	}

	var live, deleted int
	g.Slots(func(id uint32, _ uint64, isDeleted bool) bool {
		if isDeleted {
			deleted++
		} else {
			live++
		}
		n := g.nodes.get(id)
		for l := 0; l <= n.level && l < len(levels); l++ {
			levels[l].Nodes++
			n.mu.Lock()
			levels[l].Connections += len(n.links[l])
			n.mu.Unlock()
		}
		return true
	})
	for l := range levels {
		if levels[l].Nodes > 0 {
			levels[l].AvgConnections = levels[l].Connections / levels[l].Nodes
		}
	}

	return Stats{
		Parameters: map[string]string{
			"M":              fmt.Sprintf("%d", g.maxM),
			"M0":             fmt.Sprintf("%d", g.maxM0),
			"EfConstruction": fmt.Sprintf("%d", g.efConstruction),
			"Space":          g.opts.Space.String(),
			"StorageType":    g.opts.DataType.String(),
		},
		Storage: map[string]string{
			"ActiveNodes":  fmt.Sprintf("%d", live),
			"DeletedNodes": fmt.Sprintf("%d", deleted),
			"Capacity":     fmt.Sprintf("%d", g.capacity),
			"MaxLevel":     fmt.Sprintf("%d", maxLevel),
		},
		Levels: levels,
	}
}
