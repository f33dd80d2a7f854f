package shell

import (
	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
)

// Snapshot is everything a renderer needs to draw the frame, plus the
// history entries it must push before drawing.
type Snapshot struct {
	DeviceID    string              `json:"-"`
	State       navigation.State    `json:"state"`
	Screen      domain.ViewID       `json:"screen,omitempty"`
	Chrome      *navigation.Chrome  `json:"chrome,omitempty"`
	Drawer      []domain.DrawerItem `json:"drawer,omitempty"`
	HistoryPush []navigation.Entry  `json:"history_push,omitempty"`
}

func buildSnapshot(deviceID string, st navigation.State, pushed []navigation.Entry) Snapshot {
	s := Snapshot{
		DeviceID:    deviceID,
		State:       st,
		Screen:      st.Screen(),
		HistoryPush: pushed,
	}
	// chrome only frames the signed-in screens
	if st.IsLoggedIn() {
		c := navigation.Project(st.CurrentView)
		s.Chrome = &c
		if st.IsMenuOpen {
			s.Drawer = domain.Drawer
		}
	}
	return s
}
