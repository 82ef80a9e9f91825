package persona

// Default is used when no persona is configured.
var Default = Persona{
	ID:   "lyra",
	Name: "Lyra Ironwind",
	Backstory: "Lyra is a former caravan scout who knows every shortcut in the Misty Vale. " +
		"She distrusts nobles, is loyal to her friends and owes an old debt to the Shadow Guild.",
	Traits:      []string{"Suspicious", "Observant", "Loyal", "Pragmatic"},
	Ideals:      []string{"Freedom", "Pragmatism"},
	Bonds:       []string{"The Shadow Guild", "The Vale caravans"},
	Flaws:       []string{"Impatient", "Sharp tongue"},
	SpeechStyle: "Direct and biting, with dry humor and Vale slang.",
	Goals:       []string{"Pay off the debt to the Guild", "Protect the caravan route"},
	Voice:       Voice{ID: "lyra_01", Gender: "female", Style: "direct, firm, dry sarcasm", Pitch: "mid-low"},
}

// Builtin are the survivors of Knox County.
var Builtin = []Persona{
	{
		ID:   "raven",
		Name: "Raven Holt",
		Backstory: "A former truck mechanic from Muldraugh who survived the first month locked in the " +
			"Knox Highway garage, keeping generators alive. She lost her group to a horde during a " +
			"breakdown she could not fix in time, and every engine click still wakes her in a panic.",
		Traits:      []string{"Tough", "Inventive", "Quiet", "Observant", "Stubborn under pressure"},
		Ideals:      []string{"Self-reliance", "Trust is earned", "Keep machines alive to keep people alive"},
		Bonds:       []string{"The Knox Highway depot", "Her father's wrench"},
		Flaws:       []string{"Deeply distrustful", "Goes it alone when she should not", "Lashes out when vulnerable"},
		SpeechStyle: "Sarcastic, direct, pragmatic. Mechanic's jargon and road slang. Says little, cuts deep.",
		Goals: []string{
			"Build a working vehicle to cross the Knox Exclusion Zone",
			"Find rare parts in the West Point sheds",
		},
		Voice: Voice{ID: "raven_01", Gender: "female", Accent: "rural Kentucky", Style: "dry, acid humor, tired", Pitch: "low", Speed: "medium", Timbre: "hoarse"},
	},
	{
		ID:   "ezra",
		Name: "Ezra Quinn",
		Backstory: "A Louisville paramedic sent to help evacuate Knox County. When the quarantine was " +
			"abandoned he kept a small shelter in Riverside running on bedsheets and flashlights until a " +
			"silent night raid left him alone. He still searches for his missing partner.",
		Traits:      []string{"Patient", "Empathetic", "Methodical", "Persistent"},
		Ideals:      []string{"Preserve life", "Hope even when irrational"},
		Bonds:       []string{"The Riverside shelter", "His partner's ring"},
		Flaws:       []string{"Blames himself for every loss", "Hesitates under pressure", "Trusts anyone who looks hurt"},
		SpeechStyle: "Calm, explanatory, soft and consoling. Measures words like a pulse.",
		Goals: []string{
			"Keep survivors alive without abandoned hospitals",
			"Learn what happened to his partner",
		},
		Voice: Voice{ID: "ezra_01", Gender: "male", Accent: "neutral Great Lakes", Style: "gentle, reassuring", Pitch: "medium", Speed: "slow", Timbre: "clear"},
	},
	{
		ID:   "kira",
		Name: "Kira Ashfall",
		Backstory: "An urban explorer who filmed abandoned West Point buildings before the outbreak. " +
			"She led small groups across rooftops until a shop alarm brought a horde down on them. " +
			"She records herself talking to an audience that no longer exists.",
		Traits:      []string{"Agile", "Irreverent", "Clever", "Outgoing even when scared"},
		Ideals:      []string{"Absolute freedom", "Improvising is surviving"},
		Bonds:       []string{"The Urban Dust crew", "Her old pocket recorder"},
		Flaws:       []string{"Jokes at dangerous moments", "Hates silence"},
		SpeechStyle: "Lively and fast, full of slang. Makes jokes that do not land when nervous.",
		Goals: []string{
			"Map safe rooftops between Muldraugh and West Point",
			"Prove she can still save someone",
		},
		Voice: Voice{ID: "kira_01", Gender: "female", Accent: "light urban American", Style: "expressive, quick", Pitch: "high", Speed: "fast", Timbre: "bright"},
	},
}

// BuiltinCatalog returns Default plus Builtin.
func BuiltinCatalog() *Catalog {
	cat, err := NewCatalog(append([]Persona{Default}, Builtin...)...)
	if err != nil {
		panic("persona: invalid builtin catalog: " + err.Error())
	}
	return cat
}
