package bahn

// SearchRequest is the body the booking web client posts to the timetable
// endpoint.
type SearchRequest struct {
	AbfahrtsHalt                      string     `json:"abfahrtsHalt"`
	AnfrageZeitpunkt                  string     `json:"anfrageZeitpunkt"`
	AnkunftsHalt                      string     `json:"ankunftsHalt"`
	AnkunftSuche                      string     `json:"ankunftSuche"`
	Klasse                            string     `json:"klasse"`
	Produktgattungen                  []string   `json:"produktgattungen"`
	Reisende                          []Reisende `json:"reisende"`
	SchnelleVerbindungen              bool       `json:"schnelleVerbindungen"`
	SitzplatzOnly                     bool       `json:"sitzplatzOnly"`
	BikeCarriage                      bool       `json:"bikeCarriage"`
	ReservierungsKontingenteVorhanden bool       `json:"reservierungsKontingenteVorhanden"`
	NurDeutschlandTicketVerbindungen  bool       `json:"nurDeutschlandTicketVerbindungen"`
	DeutschlandTicketVorhanden        bool       `json:"deutschlandTicketVorhanden"`
}

// Reisende describes one group of travellers.
type Reisende struct {
	Typ            string         `json:"typ"`
	Ermaessigungen []Ermaessigung `json:"ermaessigungen"`
	Alter          []int          `json:"alter"`
	Anzahl         int            `json:"anzahl"`
}

// Ermaessigung is a discount card held by a traveller group.
type Ermaessigung struct {
	Art    string `json:"art"`
	Klasse string `json:"klasse"`
}

// Search direction and class values.
const (
	SearchByDeparture = "ABFAHRT"
	SecondClass       = "KLASSE_2"
	TravellerAdult    = "ERWACHSENER"
	NoDiscount        = "KEINE_ERMAESSIGUNG"
	Classless         = "KLASSENLOS"
)

// Products contains all transport modes the web client requests by default.
var Products = []string{
	"ICE",
	"EC_IC",
	"IR",
	"REGIONAL",
	"SBAHN",
	"BUS",
	"SCHIFF",
	"UBAHN",
	"TRAM",
	"ANRUFPFLICHTIG",
}
