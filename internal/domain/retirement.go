package domain

// retirementReasons maps the retirement code read from the car-state block to
// a display name. Code 0 means the car is still running.
var retirementReasons = map[int]string{
	1:  "Accident",
	2:  "Engine",
	3:  "Electrical",
	4:  "Gearbox",
	5:  "Oil pump",
	6:  "Wheel Bearing",
	7:  "Header",
	8:  "Fuel pump",
	9:  "Suspension",
	10: "Fire",
	11: "Water pump",
	12: "Mechanical",
	13: "Wastegate",
	14: "Halfshaft",
	15: "Turbo",
	16: "DNF",
}

// RetirementReason returns the display name for a retirement code, or ""
// when the code means the car is still running or is out of range.
func RetirementReason(code int) string {
	return retirementReasons[code]
}
