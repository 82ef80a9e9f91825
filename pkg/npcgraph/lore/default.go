package lore

// DefaultLore is the built-in world: a collapsed county overrun by the
// dead, plus the old caravan-road rumors.
var DefaultLore = []string{
	// Roads and rumors
	"The North Road crosses the Oak Bridge; guards levy an illegal toll at the bridge.",
	"The Shadow Guild operates out of taverns with red windows.",
	"Thick fog at dawn in the Misty Vale makes ambushes easy.",

	// Collapse
	"The Army abandoned the streets without warning; armored vehicles still block intersections.",
	"Evacuation messages keep broadcasting, even years after the fall.",
	"Deserted checkpoints still have dark stains on the floor and crushed walls.",
	"Explosions in Louisville echo for whole nights, but nobody knows the cause.",
	"Hospital corridors were sealed in a hurry with rotten boards and police tape.",
	"Old quarantine zones are full of bodies stacked under torn tarps.",

	// Towns and places
	"Houses in Muldraugh have been smoldering for months with nobody to put the fires out.",
	"West Point keeps its streets silent, except for the sound of rhythmic footsteps on the asphalt.",
	"Riverside has open manholes that breathe a sweet smell of recent decay.",
	"Rosewood was looted by armed survivors well before the outbreak got worse.",
	"Warehouses in south West Point have dented doors, as if something tried to get in.",
	"The woods between Muldraugh and highway 31W hide camps abandoned in a hurry.",
	"The West Point bridge over the Ohio river shows bullet marks and dried blood where locals tried to block hordes crossing.",
	"Garages in Muldraugh hold vehicles started at the last second, doors open and headlights shining on dry stains.",
	"The Rosewood prison keeps flickering emergency lights fed by a buried generator that still runs.",
	"Near the Riverside country club, dirt trails show dragging footsteps going in and out of shallow lakes at night.",
	"Some containers in the southern warehouses hum at night, though they have been locked from the inside for months.",

	// The dead
	"The dead gather at doors as if they remembered the keys they can no longer use.",
	"Some of the dead carry broken radios strapped to their bodies, giving off constant static.",
	"Hordes always wander in the same direction, for no apparent reason.",
	"The dead trapped in cars honk when they slump against the steering wheel.",
	"At night the dead grow quieter, like predators lying in wait.",

	// Weather and darkness
	"During storms, distant screams echo from the fallen trees.",
	"When the fog rolls in, shadows larger than people cross the street.",
	"Generators pulse with light that draws creatures from whole blocks away.",
	"Long silences always mean something has come close without being noticed.",

	// Survivor rumors
	"A gang of looters wears Army masks and imitates official broadcasts.",
	"A whole camp vanished in a single night, leaving hot food in the pots.",
	"A lone man lights a red lantern in a different house every night.",
	"There are reports of children's voices calling for help in completely empty areas.",

	// Human threats
	"Looters shoot first and ask later; bodies are left at corners as a warning.",
	"Some gangs use red smoke signals to mark territory they claim.",
	"So-called survivors call for help to ambush whoever comes close.",
	"Closed trucks pass on the highways at night, but never stop for anyone.",

	// Hazards
	"Ruptured gas lines explode without warning on hot nights.",
	"Fallen trees hide pits and deep holes carved by erosion.",
	"Rainwater can carry toxic residue from industrial fires.",
	"Old roofs give way when survivors try to hide on them.",

	// The county
	"The silence of Knox County feels heavier than the sound of the hordes.",
	"In Knox County, nobody dies only once.",
}

// NewDefaultIndex indexes DefaultLore.
func NewDefaultIndex() *KeywordIndex {
	return NewKeywordIndex(DefaultLore...)
}
