package layout

// Italian is my 11x11 Italian mask with four minute dots under it, 125 WS2812s in total.  The strip
// starts at the bottom left and every row runs left to right.
//
//	SONORLEBORE   row 10
//	ERL'UNASDUE
//	TREOTTONOVE
//	DIECIUNDICI
//	DODICISETTE
//	QUATTROCSEI
//	CINQUESMENO
//	ECUNOQUARTO
//	VENTICINQUE
//	TRENTADIECI
//	MEZZAMINUTI   row 0
//	   ....       121-124
//
// Digits are 3x5 glyphs in columns 1-3, drawn at row 0 (units) and row 6 (tens), so they never
// touch the ORE and MINUTI labels.
var Italian = &Layout{
	Name:        "italian",
	Width:       11,
	Height:      11,
	NumCells:    125,
	MaxDigitRow: 6,
	Letters: []string{
		"SONORLEBORE",
		"ERL'UNASDUE",
		"TREOTTONOVE",
		"DIECIUNDICI",
		"DODICISETTE",
		"QUATTROCSEI",
		"CINQUESMENO",
		"ECUNOQUARTO",
		"VENTICINQUE",
		"TRENTADIECI",
		"MEZZAMINUTI",
	},
	Hours: [13]Cells{
		{110, 111, 112, 113, 115, 116, 118, 119, 120}, // SONO LE ORE
		{99, 101, 102, 103, 104, 105},                 // E L'UNA
		{107, 108, 109},                               // DUE
		{88, 89, 90},                                  // TRE
		{55, 56, 57, 58, 59, 60, 61},                  // QUATTRO
		{44, 45, 46, 47, 48, 49},                      // CINQUE
		{63, 64, 65},                                  // SEI
		{72, 73, 74, 75, 76},                          // SETTE
		{91, 92, 93, 94},                              // OTTO
		{95, 96, 97, 98},                              // NOVE
		{77, 78, 79, 80, 81},                          // DIECI
		{82, 83, 84, 85, 86, 87},                      // UNDICI
		{66, 67, 68, 69, 70, 71},                      // DODICI
	},
	Minutes: [12]Cells{
		{},                                                   // in punto
		{27, 28, 29, 30, 31, 32, 33},                         // E CINQUE
		{17, 18, 19, 20, 21, 33},                             // E DIECI
		{33, 35, 36, 38, 39, 40, 41, 42, 43},                 // E UN QUARTO
		{22, 23, 24, 25, 26, 33},                             // E VENTI
		{22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33},     // E VENTICINQUE
		{0, 1, 2, 3, 4, 33},                                  // E MEZZA
		{11, 12, 13, 14, 15, 16, 27, 28, 29, 30, 31, 32, 33}, // E TRENTACINQUE
		{22, 23, 24, 25, 26, 51, 52, 53, 54},                 // MENO VENTI
		{35, 36, 38, 39, 40, 41, 42, 43, 51, 52, 53, 54},     // MENO UN QUARTO
		{17, 18, 19, 20, 21, 51, 52, 53, 54},                 // MENO DIECI
		{27, 28, 29, 30, 31, 32, 51, 52, 53, 54},             // MENO CINQUE
	},
	Dots: [5]Cells{
		{},
		{121},
		{121, 122},
		{121, 122, 123},
		{121, 122, 123, 124},
	},
	Digits: [10]Cells{
		{1, 2, 3, 12, 14, 23, 25, 34, 36, 45, 46, 47},
		{1, 2, 3, 13, 24, 34, 35, 46},
		{1, 2, 3, 12, 23, 24, 25, 36, 45, 46, 47},
		{1, 2, 3, 14, 23, 24, 25, 36, 45, 46, 47},
		{3, 14, 23, 24, 25, 34, 36, 45, 47},
		{1, 2, 3, 14, 23, 24, 25, 34, 45, 46, 47},
		{1, 2, 3, 12, 14, 23, 24, 25, 34, 45, 46, 47},
		{3, 14, 25, 36, 45, 46, 47},
		{1, 2, 3, 12, 14, 23, 24, 25, 34, 36, 45, 46, 47},
		{1, 2, 3, 14, 23, 24, 25, 34, 36, 45, 46, 47},
	},
	HourLabel:   Cells{118, 119, 120},
	MinuteLabel: Cells{5, 6, 7, 8, 9, 10},
}
