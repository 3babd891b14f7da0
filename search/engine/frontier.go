package engine

import "container/heap"

// node is a frontier entry. parent links let the solver rebuild the path of
// whichever entry reaches the goal first.
type node struct {
	state  State
	parent *node
	seq    int
}

// nodeQueue implements heap.Interface. Less orders LOWEST f first, so
// heap.Pop yields the cheapest estimate; ties prefer the smaller heuristic
// (closer to the goal) and then the earlier push.
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	fi, fj := q[i].state.F(), q[j].state.F()
	if fi != fj {
		return fi < fj
	}
	if q[i].state.H != q[j].state.H {
		return q[i].state.H < q[j].state.H
	}
	return q[i].seq < q[j].seq
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) {
	*q = append(*q, x.(*node))
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Frontier is the min-priority queue of pending states
type Frontier struct {
	queue  nodeQueue
	pushed int
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	f := &Frontier{}
	heap.Init(&f.queue)
	return f
}

// Len returns the number of pending entries
func (f *Frontier) Len() int { return f.queue.Len() }

// Pushed returns how many entries were ever pushed
func (f *Frontier) Pushed() int { return f.pushed }

func (f *Frontier) push(st State, parent *node) {
	f.pushed++
	heap.Push(&f.queue, &node{state: st, parent: parent, seq: f.pushed})
}

// Push adds a state with no recorded predecessor
func (f *Frontier) Push(st State) {
	f.push(st, nil)
}

func (f *Frontier) pop() (*node, bool) {
	if f.queue.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&f.queue).(*node), true
}

// Pop removes and returns the state with the lowest f
func (f *Frontier) Pop() (State, bool) {
	n, ok := f.pop()
	if !ok {
		return State{}, false
	}
	return n.state, true
}
