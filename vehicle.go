package roadsim

// Vehicle is a simulated car advanced once per tick by its motion rule.
// Vehicles are owned by the simulation loop; external readers only ever see
// copies taken from Snapshot.
type Vehicle struct {
	ID     int
	X      int
	Y      int
	Color  string // cosmetic only, never consulted by the phase machine
	Status Status
	Moving bool
	Role   Role

	// lateral direction for the colliding pair: +1 closes rightward, -1 leftward
	dir int
}

// advanceLateral applies the lateral closing rule: X moves by step in the
// vehicle's closing direction. No-op when the vehicle is not moving.
func (v *Vehicle) advanceLateral(step int) bool {
	if !v.Moving {
		return false
	}
	v.X += step * v.dir
	return true
}

// advanceDescent applies the longitudinal descent rule: Y moves down by step
// until the brake line is reached. No-op when the vehicle is not moving or
// already at the line.
func (v *Vehicle) advanceDescent(step, brakeLine int) bool {
	if !v.Moving || v.Y >= brakeLine {
		return false
	}
	v.Y += step
	return true
}

// separation returns the lateral distance between two vehicles
func separation(a, b *Vehicle) int {
	d := a.X - b.X
	if d < 0 {
		d = -d
	}
	return d
}
