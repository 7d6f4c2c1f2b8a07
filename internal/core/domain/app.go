package domain

// AppDetail is the resource manager view of a YARN application.
type AppDetail struct {
	ID             string `json:"id"`
	AttemptID      string `json:"attemptId"`
	User           string `json:"user"`
	Name           string `json:"name"`
	Queue          string `json:"queue"`
	Type           string `json:"type"`
	AppState       string `json:"appState"`
	FinalAppStatus string `json:"finalAppStatus"`
	Progress       string `json:"progress"`
	StartedTime    *int64 `json:"startedTime,omitempty"`
	ElapsedTime    *int64 `json:"elapsedTime,omitempty"`
	FinishedTime   *int64 `json:"finishedTime,omitempty"`
	SubmittedTime  *int64 `json:"submittedTime,omitempty"`
	Diagnostics    string `json:"diagnostics,omitempty"`
}

func (*AppDetail) EntityType() EntityType { return EntityTypeAppDetail }

func (d *AppDetail) EntityID() string { return d.ID }

// TezApp is a Tez application session. AppDetail and Dags are fetched on
// demand; Configs must be present whenever the app is.
type TezApp struct {
	ID          string             `json:"id"`
	AppID       string             `json:"appId"`
	EntityTag   string             `json:"entityType"`
	Domain      string             `json:"domain,omitempty"`
	StartedTime *int64             `json:"startedTime,omitempty"`
	AppDetail   Handle[*AppDetail] `json:"appDetail"`
	Dags        Many[*Dag]         `json:"dags"`
	Configs     Many[*KVDatum]     `json:"configs"`
}

func (*TezApp) EntityType() EntityType { return EntityTypeTezApp }

func (a *TezApp) EntityID() string { return a.ID }

// KVDatum is one configuration pair.
type KVDatum struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (*KVDatum) EntityType() EntityType { return EntityTypeKVDatum }

func (d *KVDatum) EntityID() string { return d.ID }
