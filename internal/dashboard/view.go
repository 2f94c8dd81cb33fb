package dashboard

import (
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/telemetry"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

// View is the presentation form of a DashboardState, with the values the
// cards and the alert line derive from it.
type View struct {
	Current   *types.CurrentReading   `json:"current"`
	History   []types.HistoricSample  `json:"history"`
	Status    types.Status            `json:"status"`
	Message   string                  `json:"message,omitempty"`
	Loading   bool                    `json:"loading"`
	Records   int                     `json:"records"`
	Bands     map[string]types.Band   `json:"bands,omitempty"`
	Sensors   []types.AuxiliarySensor `json:"sensors"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func NewView(st types.DashboardState) View {
	v := View{
		Current:   st.Current,
		History:   st.History,
		Status:    st.Status,
		Message:   st.Status.Message(),
		Loading:   st.Loading,
		Records:   len(st.History),
		Sensors:   telemetry.AuxiliarySensors(),
		UpdatedAt: st.UpdatedAt,
	}
	if v.History == nil {
		v.History = []types.HistoricSample{}
	}
	if st.Current != nil {
		v.Bands = telemetry.Bands(*st.Current)
	}
	return v
}
