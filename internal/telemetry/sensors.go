package telemetry

import "github.com/ntentasd/colmena-telemetry/pkg/types"

// Auxiliary sensor names.
const (
	SensorHoneyMoisture = "honey_moisture"
	SensorCO2           = "co2"
)

// AuxiliarySensors reports the optional hive sensors. The current reading
// carries no auxiliary channels, so they are always disconnected.
func AuxiliarySensors() []types.AuxiliarySensor {
	return []types.AuxiliarySensor{
		{Name: SensorHoneyMoisture, Label: "Honey moisture", Connected: false},
		{Name: SensorCO2, Label: "CO2 level", Connected: false},
	}
}
