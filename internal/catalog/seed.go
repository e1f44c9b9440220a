package catalog

import "github.com/soniakeys/unit"

// seedStar is a catalog row in the form it is usually published: J2000
// right ascension in hours and declination in degrees, both sexagesimal.
type seedStar struct {
	name          string
	constellation string
	ra            unit.RA
	dec           unit.Angle
	magnitude     float64
}

var brightStars = []seedStar{
	{"Sirius", "CMa", unit.NewRA(6, 45, 8.917), unit.NewAngle('-', 16, 42, 58.02), -1.46},
	{"Canopus", "Car", unit.NewRA(6, 23, 57.110), unit.NewAngle('-', 52, 41, 44.38), -0.74},
	{"Rigil Kentaurus", "Cen", unit.NewRA(14, 39, 36.494), unit.NewAngle('-', 60, 50, 2.37), -0.27},
	{"Arcturus", "Boo", unit.NewRA(14, 15, 39.672), unit.NewAngle(' ', 19, 10, 56.67), -0.05},
	{"Vega", "Lyr", unit.NewRA(18, 36, 56.336), unit.NewAngle(' ', 38, 47, 1.28), 0.03},
	{"Capella", "Aur", unit.NewRA(5, 16, 41.359), unit.NewAngle(' ', 45, 59, 52.77), 0.08},
	{"Rigel", "Ori", unit.NewRA(5, 14, 32.272), unit.NewAngle('-', 8, 12, 5.90), 0.13},
	{"Procyon", "CMi", unit.NewRA(7, 39, 18.118), unit.NewAngle(' ', 5, 13, 29.96), 0.34},
	{"Achernar", "Eri", unit.NewRA(1, 37, 42.845), unit.NewAngle('-', 57, 14, 12.31), 0.46},
	{"Betelgeuse", "Ori", unit.NewRA(5, 55, 10.305), unit.NewAngle(' ', 7, 24, 25.43), 0.50},
	{"Hadar", "Cen", unit.NewRA(14, 3, 49.405), unit.NewAngle('-', 60, 22, 22.93), 0.61},
	{"Acrux", "Cru", unit.NewRA(12, 26, 35.895), unit.NewAngle('-', 63, 5, 56.73), 0.76},
	{"Altair", "Aql", unit.NewRA(19, 50, 46.999), unit.NewAngle(' ', 8, 52, 5.96), 0.77},
	{"Aldebaran", "Tau", unit.NewRA(4, 35, 55.239), unit.NewAngle(' ', 16, 30, 33.49), 0.86},
	{"Antares", "Sco", unit.NewRA(16, 29, 24.459), unit.NewAngle('-', 26, 25, 55.21), 0.96},
	{"Spica", "Vir", unit.NewRA(13, 25, 11.579), unit.NewAngle('-', 11, 9, 40.75), 0.97},
	{"Pollux", "Gem", unit.NewRA(7, 45, 18.950), unit.NewAngle(' ', 28, 1, 34.32), 1.14},
	{"Fomalhaut", "PsA", unit.NewRA(22, 57, 39.046), unit.NewAngle('-', 29, 37, 20.05), 1.16},
	{"Deneb", "Cyg", unit.NewRA(20, 41, 25.915), unit.NewAngle(' ', 45, 16, 49.22), 1.25},
	{"Regulus", "Leo", unit.NewRA(10, 8, 22.311), unit.NewAngle(' ', 11, 58, 1.95), 1.35},
	{"Polaris", "UMi", unit.NewRA(2, 31, 49.094), unit.NewAngle(' ', 89, 15, 50.79), 1.98},
}
