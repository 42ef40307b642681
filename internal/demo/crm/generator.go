// Package crm generates a synthetic CRM sales dataset shaped like the real
// extracts: accounts, products, sales teams, a deal pipeline, and an
// interaction log.
package crm

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Account struct {
	AccountID       int
	Account         string
	Sector          string
	YearEstablished int
	Revenue         float64
	Employees       int
	OfficeLocation  string
}

type Product struct {
	ProductID  int
	Product    string
	Series     string
	SalesPrice float64
}

type TeamMember struct {
	SalesAgent     string
	Manager        string
	RegionalOffice string
}

type Deal struct {
	OpportunityID string
	AccountID     int
	ProductID     int
	SalesAgent    string
	Product       string
	Account       string
	DealStage     string
	EngageDate    string
	CloseDate     string
	CloseValue    float64
}

type Interaction struct {
	InteractionID   int
	AccountID       int
	SalesAgent      string
	ActivityType    string
	Status          string
	InteractionDate string
	Comment         string
}

type Dataset struct {
	Accounts     []Account
	Products     []Product
	Teams        []TeamMember
	Pipeline     []Deal
	Interactions []Interaction
}

type Generator struct {
	rnd          *rand.Rand
	accounts     int
	deals        int
	interactions int
	baseDate     time.Time
}

func NewGenerator(seed int64, accounts, deals, interactions int) *Generator {
	return &Generator{
		rnd:          rand.New(rand.NewSource(seed)),
		accounts:     accounts,
		deals:        deals,
		interactions: interactions,
		baseDate:     time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// sectors carries the 'technolgy' spelling on purpose, matching the quirk in
// the real extracts.
var sectors = []string{"technolgy", "retail", "medical", "finance", "software", "marketing", "telecommunications"}

var offices = []string{"Boston", "Denver", "Austin", "Chicago", "Seattle", "Miami"}

var productCatalog = []Product{
	{ProductID: 1, Product: "GTX Basic", Series: "GTX", SalesPrice: 550},
	{ProductID: 2, Product: "GTX Pro", Series: "GTX", SalesPrice: 4821},
	{ProductID: 3, Product: "GTX Plus Basic", Series: "GTX", SalesPrice: 1096},
	{ProductID: 4, Product: "GTX Plus Pro", Series: "GTX", SalesPrice: 5482},
	{ProductID: 5, Product: "MG Special", Series: "MG", SalesPrice: 55},
	{ProductID: 6, Product: "MG Advanced", Series: "MG", SalesPrice: 3393},
	{ProductID: 7, Product: "GTK 500", Series: "GTK", SalesPrice: 26768},
}

var agentNames = []string{
	"Elease Gluck", "Darcel Schlecht", "Moses Frase", "Vicki Laflamme",
	"Rosalina Dieter", "Markita Hansen", "Anna Snelling", "Donn Cantrell",
	"Kary Hendrixson", "Zane Levy",
}

var managerNames = []string{"Dustin Brinkmann", "Melvin Marxen", "Summer Sewald"}

var dealStages = []string{"Prospecting", "Engaging", "Won", "Lost"}

var activityTypes = []string{"Call", "Email", "Meeting", "Demo"}

var interactionStatuses = []string{"Completed", "Scheduled", "No Response"}

// Dataset builds the full synthetic dataset. The same seed always produces
// byte-identical output.
func (g *Generator) Dataset() Dataset {
	accounts := g.buildAccounts()
	teams := g.buildTeams()
	pipeline := g.buildPipeline(accounts)
	interactions := g.buildInteractions(accounts)
	return Dataset{
		Accounts:     accounts,
		Products:     productCatalog,
		Teams:        teams,
		Pipeline:     pipeline,
		Interactions: interactions,
	}
}

func (g *Generator) buildAccounts() []Account {
	accounts := make([]Account, 0, g.accounts)
	for i := 0; i < g.accounts; i++ {
		accounts = append(accounts, Account{
			AccountID:       i + 1,
			Account:         fmt.Sprintf("%s %s", pickOne(g.rnd, companyPrefixes), pickOne(g.rnd, companySuffixes)),
			Sector:          pickOne(g.rnd, sectors),
			YearEstablished: 1980 + g.rnd.Intn(40),
			Revenue:         round2(100 + g.rnd.Float64()*9900),
			Employees:       50 + g.rnd.Intn(9950),
			OfficeLocation:  pickOne(g.rnd, offices),
		})
	}
	return accounts
}

func (g *Generator) buildTeams() []TeamMember {
	teams := make([]TeamMember, 0, len(agentNames))
	for i, agent := range agentNames {
		teams = append(teams, TeamMember{
			SalesAgent:     agent,
			Manager:        managerNames[i%len(managerNames)],
			RegionalOffice: offices[i%len(offices)],
		})
	}
	return teams
}

func (g *Generator) buildPipeline(accounts []Account) []Deal {
	deals := make([]Deal, 0, g.deals)
	for i := 0; i < g.deals; i++ {
		account := accounts[g.rnd.Intn(len(accounts))]
		product := productCatalog[g.rnd.Intn(len(productCatalog))]
		stage := pickOne(g.rnd, dealStages)
		engage := g.baseDate.AddDate(0, 0, g.rnd.Intn(600))

		deal := Deal{
			OpportunityID: fmt.Sprintf("OPP%05d", i+1),
			AccountID:     account.AccountID,
			ProductID:     product.ProductID,
			SalesAgent:    pickOne(g.rnd, agentNames),
			Product:       product.Product,
			Account:       account.Account,
			DealStage:     stage,
			EngageDate:    engage.Format("2006-01-02"),
		}
		if stage == "Won" || stage == "Lost" {
			deal.CloseDate = engage.AddDate(0, 0, 10+g.rnd.Intn(80)).Format("2006-01-02")
		}
		if stage == "Won" {
			deal.CloseValue = round2(product.SalesPrice * (0.7 + g.rnd.Float64()*0.6))
		}
		deals = append(deals, deal)
	}
	return deals
}

func (g *Generator) buildInteractions(accounts []Account) []Interaction {
	interactions := make([]Interaction, 0, g.interactions)
	for i := 0; i < g.interactions; i++ {
		account := accounts[g.rnd.Intn(len(accounts))]
		when := g.baseDate.AddDate(0, 0, g.rnd.Intn(650))
		activity := pickOne(g.rnd, activityTypes)
		interactions = append(interactions, Interaction{
			InteractionID:   i + 1,
			AccountID:       account.AccountID,
			SalesAgent:      pickOne(g.rnd, agentNames),
			ActivityType:    activity,
			Status:          pickOne(g.rnd, interactionStatuses),
			InteractionDate: when.Format("2006-01-02"),
			Comment:         fmt.Sprintf("%s with %s", activity, account.Account),
		})
	}
	return interactions
}

var companyPrefixes = []string{
	"Acme", "Globex", "Initech", "Umbra", "Vertex", "Quanta", "Solaris",
	"Northwind", "Zenith", "Cobalt", "Lumen", "Praxis",
}

var companySuffixes = []string{
	"Corp", "Holdings", "Systems", "Labs", "Group", "Industries", "Partners",
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
