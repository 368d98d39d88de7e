package diagram

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_Toggle(t *testing.T) {
	var clicks []string
	s := NewSelection(func(id string) { clicks = append(clicks, id) })

	assert.Equal(t, "", s.Selected())
	assert.Equal(t, "stage-1", s.Click("stage-1"))
	assert.Equal(t, "stage-1", s.Selected())

	assert.Equal(t, "stage-2", s.Click("stage-2"), "clicking another node moves the selection")
	assert.Equal(t, "", s.Click("stage-2"), "clicking the selected node clears it")
	assert.Equal(t, "", s.Selected())

	assert.Equal(t, []string{"stage-1", "stage-2", "stage-2"}, clicks)
}

func TestSelection_NoCallback(t *testing.T) {
	s := NewSelection(nil)
	assert.NotPanics(t, func() {
		s.Click("end")
		s.Click("end")
	})
	assert.Equal(t, "", s.Selected())
}

func TestSelection_Clear(t *testing.T) {
	calls := 0
	s := NewSelection(func(string) { calls++ })
	s.Click("start")
	s.Clear()
	assert.Equal(t, "", s.Selected())
	assert.Equal(t, 1, calls, "clear does not report a click")
}

func TestSelection_CallbackMayReenter(t *testing.T) {
	var s *Selection
	var seen string
	s = NewSelection(func(string) { seen = s.Selected() })
	s.Click("stage-3")
	assert.Equal(t, "stage-3", seen)
}

func TestSelection_Concurrent(t *testing.T) {
	s := NewSelection(nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Click("stage-1")
		}()
	}
	wg.Wait()
	assert.Equal(t, "", s.Selected(), "an even number of toggles leaves nothing selected")
}
