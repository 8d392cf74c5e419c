package menu

import "sort"

// sensorDistricts maps the known Yerevan sensors to their districts.
var sensorDistricts = map[int]string{
	2:  "Nor Nork",
	4:  "Arabkir",
	7:  "Davtashen",
	9:  "Erebuni",
	11: "Shengavit",
	28: "Ajapnyak",
	29: "Arabkir",
	30: "Davtashen",
	41: "Avan",
	43: "Shengavit",
	45: "Nor Nork",
	50: "Ajapnyak",
	53: "Kentron",
}

// DistrictOf returns the district for a sensor, or "Unknown".
func DistrictOf(sensorID int) string {
	if d, ok := sensorDistricts[sensorID]; ok {
		return d
	}
	return "Unknown"
}

// KnownSensor reports whether a sensor id is in the district table.
func KnownSensor(sensorID int) bool {
	_, ok := sensorDistricts[sensorID]
	return ok
}

// sensorsByDistrict groups sensor ids per district, each group sorted,
// district names in alphabetical order.
func sensorsByDistrict() ([]string, map[string][]int) {
	grouped := make(map[string][]int)
	for id, district := range sensorDistricts {
		grouped[district] = append(grouped[district], id)
	}
	names := make([]string, 0, len(grouped))
	for name, ids := range grouped {
		sort.Ints(ids)
		names = append(names, name)
	}
	sort.Strings(names)
	return names, grouped
}
