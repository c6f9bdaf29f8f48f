package metric

// Standard metric names.
const (
	EventsTotal          = "events_total"
	EventErrorsTotal     = "event_errors_total"
	GuildJoinsTotal      = "guild_joins_total"
	GuildLeavesTotal     = "guild_leaves_total"
	RoleEventsTotal      = "role_events_total"
	PersistFailuresTotal = "persist_failures_total"
	PersistDroppedTotal  = "persist_dropped_total"
	ShardReady           = "shard_ready"
	ApproximateCount     = "approximate_count"
	CachedGuilds         = "cached_guilds"
)

// Standard label names.
const (
	LabelShard   = "shard"
	LabelType    = "type"
	LabelReason  = "reason"
	LabelAction  = "action"
	LabelOp      = "op"
	LabelCounter = "counter"
)

// Values of the reason label of EventErrorsTotal.
const (
	ReasonMalformed       = "malformed"
	ReasonBacklogOverflow = "backlog_overflow"
	ReasonHandlerError    = "handler_error"
	ReasonHandlerPanic    = "handler_panic"
)

// InvalidShard is the shard label value used for envelopes whose shard
// is outside the configured range.
const InvalidShard = "invalid"

// Standard returns the definitions used by the ingestion core.
func Standard() []Definition {
	return []Definition{
		{
			Name:   EventsTotal,
			Help:   "Dispatched gateway events by shard and event type.",
			Labels: []string{LabelShard, LabelType},
			Kind:   KindCounter,
		},
		{
			Name:   EventErrorsTotal,
			Help:   "Dropped or failed gateway events by shard and reason.",
			Labels: []string{LabelShard, LabelReason},
			Kind:   KindCounter,
		},
		{
			Name:   GuildJoinsTotal,
			Help:   "Member join events by shard.",
			Labels: []string{LabelShard},
			Kind:   KindCounter,
		},
		{
			Name:   GuildLeavesTotal,
			Help:   "Member leave events by shard.",
			Labels: []string{LabelShard},
			Kind:   KindCounter,
		},
		{
			Name:   RoleEventsTotal,
			Help:   "Role create, update and delete events by shard.",
			Labels: []string{LabelShard, LabelAction},
			Kind:   KindCounter,
		},
		{
			Name:      PersistFailuresTotal,
			Help:      "Persistence writes that failed after retries.",
			Labels:    []string{LabelOp},
			Kind:      KindCounter,
			MaxSeries: 8,
		},
		{
			Name:      PersistDroppedTotal,
			Help:      "Persistence writes dropped because the queue was full.",
			Labels:    []string{LabelOp},
			Kind:      KindCounter,
			MaxSeries: 8,
		},
		{
			Name:   ShardReady,
			Help:   "1 when the shard finished its initial synchronization.",
			Labels: []string{LabelShard},
			Kind:   KindGauge,
		},
		{
			Name:      ApproximateCount,
			Help:      "Approximate aggregate counters such as users and guilds.",
			Labels:    []string{LabelCounter},
			Kind:      KindGauge,
			MaxSeries: 32,
		},
		{
			Name: CachedGuilds,
			Help: "Guilds with cached state.",
			Kind: KindGauge,
		},
	}
}

// NewStandardRegistry returns a registry holding the Standard definitions.
func NewStandardRegistry() (*Registry, error) {
	reg := NewRegistry()
	for _, def := range Standard() {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
