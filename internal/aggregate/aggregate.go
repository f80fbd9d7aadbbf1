// Package aggregate merges raw occupation records into consolidated careers.
package aggregate

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/careerlens/careers-cli/internal/config"
	"github.com/careerlens/careers-cli/internal/model"
)

// Input is everything one aggregation run consumes.
type Input struct {
	Records     []model.RawOccupationRecord
	Definitions []model.ConsolidationDefinition
	Manual      []model.ManualCareer
}

// Stats summarizes a run so callers can detect degraded output without
// reading logs.
type Stats struct {
	RawRecords         int `json:"raw_records"`
	Definitions        int `json:"definitions"`
	Consolidated       int `json:"consolidated"`
	PassThrough        int `json:"pass_through"`
	Manual             int `json:"manual"`
	SkippedDefinitions int `json:"skipped_definitions"`
	MissingMembers     int `json:"missing_members"`
	DuplicateMembers   int `json:"duplicate_members"`
	SlugCollisions     int `json:"slug_collisions"`
	DegradedWages      int `json:"degraded_wages"`
	DegradedTraining   int `json:"degraded_training"`
	DegradedRisk       int `json:"degraded_risk"`
}

// Result is the output of one run.
type Result struct {
	RunID   string                     `json:"-"`
	Careers []model.ConsolidatedCareer `json:"careers"`
	Stats   Stats                      `json:"stats"`

	// Unclaimed lists raw codes whose pass-through career was skipped
	// because its slug was already taken.
	Unclaimed []string `json:"unclaimed,omitempty"`
}

// Aggregator consolidates raw occupation records.
type Aggregator struct {
	workers int
}

// New creates an Aggregator. Workers bounds how many definitions are
// computed concurrently.
func New(cfg config.AggregateConfig) *Aggregator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{workers: workers}
}

// group is one planned consolidated career with its resolved members.
type group struct {
	def     model.ConsolidationDefinition
	members []*model.RawOccupationRecord
}

// degradation flags which fallbacks a computed career needed.
type degradation struct {
	wages, training, risk bool
}

// Aggregate runs consolidation: definitions first, then manual careers,
// then a pass-through career for every raw code nobody claimed. Output order
// follows input order, so identical inputs give identical output.
func (a *Aggregator) Aggregate(ctx context.Context, in Input) (*Result, error) {
	log := zap.L().With(zap.String("component", "aggregate"))
	res := &Result{RunID: uuid.New().String()}
	res.Stats.RawRecords = len(in.Records)
	res.Stats.Definitions = len(in.Definitions)

	byCode := make(map[string]*model.RawOccupationRecord, len(in.Records))
	for i := range in.Records {
		byCode[in.Records[i].Code] = &in.Records[i]
	}

	claimed := make(map[string]string, len(in.Records)) // code -> claiming slug
	slugs := make(map[string]bool)

	// Claim phase: sequential so overlapping definitions resolve in input order.
	groups := make([]group, 0, len(in.Definitions))
	for _, def := range in.Definitions {
		if slugs[def.ID] {
			res.Stats.SlugCollisions++
			res.Stats.SkippedDefinitions++
			log.Warn("aggregate: definition id already used, skipping", zap.String("id", def.ID))
			continue
		}

		members := a.claim(def.ID, def.MemberCodes, byCode, claimed, &res.Stats)
		if len(members) == 0 {
			res.Stats.SkippedDefinitions++
			log.Warn("aggregate: definition has no resolvable members, skipping",
				zap.String("id", def.ID),
				zap.Strings("member_codes", def.MemberCodes),
			)
			continue
		}
		slugs[def.ID] = true
		groups = append(groups, group{def: def, members: members})
	}

	// Compute phase: groups are independent; results land in fixed slots.
	consolidated := make([]model.ConsolidatedCareer, len(groups))
	degraded := make([]degradation, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "aggregate: cancelled")
			}
			consolidated[i], degraded[i] = buildConsolidated(groups[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, d := range degraded {
		res.Stats.record(log, consolidated[i].Slug, d)
	}
	res.Careers = append(res.Careers, consolidated...)
	res.Stats.Consolidated = len(consolidated)

	for _, mc := range in.Manual {
		if slugs[mc.Slug] {
			res.Stats.SlugCollisions++
			log.Warn("aggregate: manual career slug already used, skipping", zap.String("slug", mc.Slug))
			continue
		}
		members := a.claim(mc.Slug, mc.MemberCodes, byCode, claimed, &res.Stats)
		career, d := buildManual(mc, members)
		res.Stats.record(log, career.Slug, d)
		slugs[mc.Slug] = true
		res.Careers = append(res.Careers, career)
		res.Stats.Manual++
	}

	// Pass-through: consolidation is opt-in per code, so every unclaimed
	// record becomes its own career regardless of category.
	for i := range in.Records {
		rec := &in.Records[i]
		if _, ok := claimed[rec.Code]; ok {
			continue
		}
		slug := rec.CareerSlug()
		if slugs[slug] {
			res.Stats.SlugCollisions++
			res.Unclaimed = append(res.Unclaimed, rec.Code)
			log.Warn("aggregate: pass-through slug collides with existing career, skipping",
				zap.String("code", rec.Code),
				zap.String("slug", slug),
			)
			continue
		}
		slugs[slug] = true
		claimed[rec.Code] = slug

		career, d := buildPassThrough(rec)
		if d.training {
			res.Stats.DegradedTraining++
		}
		if d.risk {
			res.Stats.DegradedRisk++
		}
		res.Careers = append(res.Careers, career)
		res.Stats.PassThrough++
	}

	log.Info("aggregate: run complete",
		zap.String("run_id", res.RunID),
		zap.Int("raw_records", res.Stats.RawRecords),
		zap.Int("consolidated", res.Stats.Consolidated),
		zap.Int("pass_through", res.Stats.PassThrough),
		zap.Int("manual", res.Stats.Manual),
		zap.Int("skipped_definitions", res.Stats.SkippedDefinitions),
		zap.Int("missing_members", res.Stats.MissingMembers),
		zap.Int("slug_collisions", res.Stats.SlugCollisions),
	)
	return res, nil
}

// claim resolves codes to records and marks them as owned by slug. Unknown
// codes and codes claimed by an earlier career are dropped and counted.
func (a *Aggregator) claim(slug string, codes []string, byCode map[string]*model.RawOccupationRecord, claimed map[string]string, stats *Stats) []*model.RawOccupationRecord {
	members := make([]*model.RawOccupationRecord, 0, len(codes))
	for _, code := range codes {
		rec, ok := byCode[code]
		if !ok {
			stats.MissingMembers++
			zap.L().Warn("aggregate: member code not found in raw records",
				zap.String("career", slug),
				zap.String("code", code),
			)
			continue
		}
		if owner, taken := claimed[code]; taken {
			if owner != slug {
				stats.DuplicateMembers++
				zap.L().Warn("aggregate: member code already claimed",
					zap.String("career", slug),
					zap.String("code", code),
					zap.String("claimed_by", owner),
				)
			}
			continue
		}
		claimed[code] = slug
		members = append(members, rec)
	}
	return members
}

// record counts the fallbacks d reports for slug.
func (s *Stats) record(log *zap.Logger, slug string, d degradation) {
	if d.wages {
		s.DegradedWages++
		log.Warn("aggregate: no employment-weighted median, used fallback", zap.String("slug", slug))
	}
	if d.training {
		s.DegradedTraining++
		log.Warn("aggregate: no training years, used default category", zap.String("slug", slug))
	}
	if d.risk {
		s.DegradedRisk++
		log.Warn("aggregate: no risk tier, used default", zap.String("slug", slug))
	}
}

func buildConsolidated(g group) (model.ConsolidatedCareer, degradation) {
	var d degradation
	primary := g.members[0]
	for _, m := range g.members {
		if m.Code == g.def.PrimaryCode {
			primary = m
			break
		}
	}

	median, weighted := WeightedMedian(g.members)
	d.wages = !weighted
	low, high := PayRange(g.members)
	training, ok := AverageTraining(g.members)
	d.training = !ok
	tier, ok := ClassifyRisk(g.members)
	d.risk = !ok

	category := g.def.Category
	if category == "" {
		category = primary.Category
	}

	specSlugs := make([]string, 0, len(g.members))
	var tasks, skills, abilities, titles [][]string
	for _, m := range g.members {
		specSlugs = append(specSlugs, m.CareerSlug())
		tasks = append(tasks, m.Tasks)
		skills = append(skills, m.TechnologySkills)
		abilities = append(abilities, m.Abilities)
		titles = append(titles, m.AlternateTitles)
	}

	return model.ConsolidatedCareer{
		Slug:                g.def.ID,
		Title:               g.def.Title,
		Category:            category,
		Source:              model.SourceConsolidated,
		IsConsolidated:      true,
		SpecializationCount: len(g.members),
		SpecializationSlugs: specSlugs,
		MemberCodes:         codesOf(g.members),
		PrimaryCode:         primary.Code,
		Wages: model.CareerWages{
			Pct10:           low,
			Median:          median,
			Pct90:           high,
			EmploymentCount: TotalEmployment(g.members),
		},
		TrainingTimeCategory: training,
		RiskTier:             tier,
		Description:          primary.Description,
		Subcategory:          primary.Subcategory,
		Outlook:              primary.Outlook,
		VideoURL:             primary.VideoURL,
		Tasks:                UnionCapped(MaxTasks, tasks...),
		TechnologySkills:     UnionCapped(MaxTechnologySkills, skills...),
		Abilities:            UnionCapped(MaxAbilities, abilities...),
		AlternateTitles:      UnionCapped(MaxAlternateTitles, titles...),
	}, d
}

func buildPassThrough(rec *model.RawOccupationRecord) (model.ConsolidatedCareer, degradation) {
	var d degradation
	members := []*model.RawOccupationRecord{rec}

	median, _ := WeightedMedian(members)
	low, high := PayRange(members)
	training, ok := AverageTraining(members)
	d.training = !ok
	tier, ok := ClassifyRisk(members)
	d.risk = !ok

	wages := model.CareerWages{
		Pct10:           low,
		Median:          median,
		Pct90:           high,
		EmploymentCount: TotalEmployment(members),
	}
	if rec.Wages != nil {
		wages.Pct25 = rec.Wages.Pct25
		wages.Pct75 = rec.Wages.Pct75
	}

	return model.ConsolidatedCareer{
		Slug:                 rec.CareerSlug(),
		Title:                rec.Title,
		Category:             rec.Category,
		Source:               model.SourcePassThrough,
		IsConsolidated:       false,
		SpecializationCount:  1,
		SpecializationSlugs:  []string{},
		MemberCodes:          []string{rec.Code},
		PrimaryCode:          rec.Code,
		Wages:                wages,
		TrainingTimeCategory: training,
		RiskTier:             tier,
		Description:          rec.Description,
		Subcategory:          rec.Subcategory,
		Outlook:              rec.Outlook,
		VideoURL:             rec.VideoURL,
		Tasks:                UnionCapped(MaxTasks, rec.Tasks),
		TechnologySkills:     UnionCapped(MaxTechnologySkills, rec.TechnologySkills),
		Abilities:            UnionCapped(MaxAbilities, rec.Abilities),
		AlternateTitles:      UnionCapped(MaxAlternateTitles, rec.AlternateTitles),
	}, d
}

// buildManual keeps every authored field and fills the rest from the
// claimed members, or from defaults when nothing was claimed.
func buildManual(mc model.ManualCareer, members []*model.RawOccupationRecord) (model.ConsolidatedCareer, degradation) {
	var d degradation
	c := mc.ConsolidatedCareer
	c.Source = model.SourceManual
	c.MemberCodes = codesOf(members)
	if c.SpecializationCount < 1 {
		c.SpecializationCount = max(len(members), 1)
	}

	if len(members) > 0 {
		primary := members[0]
		if c.PrimaryCode == "" {
			c.PrimaryCode = primary.Code
		}
		if c.Category == "" {
			c.Category = primary.Category
		}
		if c.Description == "" {
			c.Description = primary.Description
		}
		if c.Outlook == "" {
			c.Outlook = primary.Outlook
		}
		if len(c.SpecializationSlugs) == 0 {
			c.SpecializationSlugs = make([]string, 0, len(members))
			for _, m := range members {
				c.SpecializationSlugs = append(c.SpecializationSlugs, m.CareerSlug())
			}
		}
	}

	if c.Wages.Median == 0 {
		median, weighted := WeightedMedian(members)
		c.Wages.Median = median
		d.wages = !weighted
	}
	low, high := PayRange(members)
	if c.Wages.Pct10 == 0 {
		c.Wages.Pct10 = low
	}
	if c.Wages.Pct90 == 0 {
		c.Wages.Pct90 = high
	}
	if c.Wages.EmploymentCount == 0 {
		c.Wages.EmploymentCount = TotalEmployment(members)
	}

	if c.TrainingTimeCategory == "" {
		var ok bool
		c.TrainingTimeCategory, ok = AverageTraining(members)
		d.training = !ok
	}
	if !mc.RiskTierSet {
		var ok bool
		c.RiskTier, ok = ClassifyRisk(members)
		d.risk = !ok
	}

	var tasks, skills, abilities, titles [][]string
	for _, m := range members {
		tasks = append(tasks, m.Tasks)
		skills = append(skills, m.TechnologySkills)
		abilities = append(abilities, m.Abilities)
		titles = append(titles, m.AlternateTitles)
	}
	c.Tasks = fillList(c.Tasks, MaxTasks, tasks)
	c.TechnologySkills = fillList(c.TechnologySkills, MaxTechnologySkills, skills)
	c.Abilities = fillList(c.Abilities, MaxAbilities, abilities)
	c.AlternateTitles = fillList(c.AlternateTitles, MaxAlternateTitles, titles)
	if c.SpecializationSlugs == nil {
		c.SpecializationSlugs = []string{}
	}
	return c, d
}

// fillList keeps an authored list and otherwise unions the member lists.
// The result is never nil.
func fillList(authored []string, limit int, lists [][]string) []string {
	if len(authored) > 0 {
		return authored
	}
	return UnionCapped(limit, lists...)
}

func codesOf(members []*model.RawOccupationRecord) []string {
	codes := make([]string, len(members))
	for i, m := range members {
		codes[i] = m.Code
	}
	return codes
}
