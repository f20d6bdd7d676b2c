package results

// Metrics are the output variables extracted after every thermal run, in
// column order.
var Metrics = []string{
	"Gas_MWh", "Elec_MWh", "Gas_kWh/m2", "Elec_kWh/m2",
	"Boilers_MWh", "Chillers_MWh", "Boilers_kWh/m2", "Chillers_kWh/m2",
	"CE_kgCO2/m2", "UK_BER_kgCO2/m2", "EUI_kWh/m2", "Ta_max_degC",
	"Boiler_max_kW", "Chiller_max_kW", "Interior_lighting_kWh/m2",
	"Exterior_lighting_kWh/m2", "Space_heating_(gas)_kWh/m2",
	"Space_heating_(elec)_kWh/m2", "Space_cooling_kWh/m2",
	"Pumps_kWh/m2", "Fans_interior_kWh/m2", "DHW_heating_kWh/m2",
	"Receptacle_equipment_kWh/m2", "Elevators_escalators_kWh/m2",
	"Data_center_equipment_kWh/m2", "Cooking_(gas)_kWh/m2",
	"Cooking_(elec)_kWh/m2", "Refrigeration_kWh/m2", "Wind_PV_kWh/m2",
}
