package runner

import (
	"os"
	"time"

	"github.com/mitchellh/go-ps"
)

// descendantsOf returns every live process below root, breadth first.
// Uses go-ps library for cross-platform process discovery.
func descendantsOf(root int) []int {
	processes, err := ps.Processes()
	if err != nil {
		return nil
	}

	children := make(map[int][]int)
	for _, p := range processes {
		children[p.PPid()] = append(children[p.PPid()], p.Pid())
	}

	var out []int
	seen := map[int]bool{root: true}
	queue := []int{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

func killAll(pids []int) {
	for _, pid := range pids {
		if p, err := os.FindProcess(pid); err == nil {
			_ = p.Kill()
		}
	}
}

// survivors returns the pids from the list that are still running once
// within has passed. Killed processes can linger briefly, and as zombies
// until their new parent reaps them; neither counts.
func survivors(pids []int, within time.Duration) []int {
	deadline := time.Now().Add(within)
	for {
		var alive []int
		for _, pid := range pids {
			if !gone(pid) {
				alive = append(alive, pid)
			}
		}
		if len(alive) == 0 || !time.Now().Before(deadline) {
			return alive
		}
		pids = alive
		time.Sleep(20 * time.Millisecond)
	}
}

// gone reports whether pid has exited, reaped or not.
func gone(pid int) bool {
	p, err := ps.FindProcess(pid)
	if err != nil || p == nil {
		return true
	}
	return isZombie(pid)
}
