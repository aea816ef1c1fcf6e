package epiworld

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

type TraceInst struct {
	TraceDay  int    `json:"traceday" yaml:"traceday"`
	TraceType string `json:"tracetype" yaml:"tracetype"`
	TraceStr  string `json:"tracestr" yaml:"tracestr"`
}

// NameType is a an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager gathers a record of every Action committed during the runs of a model.
// Registry objects are listed in NameByID under the key "<type>/<id>".
type TraceManager struct {
	// model uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of model
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each virus and tool
	NameByID map[string]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records, indexed by the id of the agent they concern
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the model
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[string]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// Len is the number of trace records held
func (tm *TraceManager) Len() int {
	n := 0
	for _, traces := range tm.Traces {
		n += len(traces)
	}
	return n
}

// AddTrace stores a trace record under the agent id
func (tm *TraceManager) AddTrace(agentID int, trace TraceInst) {
	if !tm.InUse {
		return
	}
	_, present := tm.Traces[agentID]
	if !present {
		tm.Traces[agentID] = make([]TraceInst, 0)
	}
	tm.Traces[agentID] = append(tm.Traces[agentID], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file.
// A registry id is only ever given one name; re-adding the same pair is a no-op.
func (tm *TraceManager) AddName(id int, name string, objDesc string) error {
	if !tm.InUse {
		return nil
	}
	key := objDesc + "/" + strconv.Itoa(id)
	prior, present := tm.NameByID[key]
	if present && prior.Name != name {
		return fmt.Errorf("%s id %d already named %s", objDesc, id, prior.Name)
	}
	tm.NameByID[key] = NameType{Name: name, Type: objDesc}
	return nil
}

// WriteToFile stores the TraceManager to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// With globalOrder set every record is merged into one list, ordered by day.
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) error {
	if !tm.InUse {
		return nil
	}
	if !globalOrder {
		return writeSerialized(filename, *tm)
	}

	ntm := new(TraceManager)
	ntm.InUse = tm.InUse
	ntm.ExpName = tm.ExpName
	ntm.NameByID = make(map[string]NameType)
	for key, value := range tm.NameByID {
		ntm.NameByID[key] = value
	}

	agentIDs := make([]int, 0, len(tm.Traces))
	for agentID := range tm.Traces {
		agentIDs = append(agentIDs, agentID)
	}
	sort.Ints(agentIDs)

	ntm.Traces = make(map[int][]TraceInst)
	ntm.Traces[0] = make([]TraceInst, 0)
	for _, agentID := range agentIDs {
		ntm.Traces[0] = append(ntm.Traces[0], tm.Traces[agentID]...)
	}
	sort.SliceStable(ntm.Traces[0], func(i, j int) bool {
		return ntm.Traces[0][i].TraceDay < ntm.Traces[0][j].TraceDay
	})
	return writeSerialized(filename, *ntm)
}

// ReadTraceManager recovers a TraceManager written by WriteToFile
func ReadTraceManager(filename string) (*TraceManager, error) {
	ext := path.Ext(filename)
	if ext != ".yaml" && ext != ".YAML" && ext != ".yml" && ext != ".json" && ext != ".JSON" {
		return nil, fmt.Errorf("cannot tell serialization of %s from its extension", filename)
	}
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	tm := new(TraceManager)
	if useYAMLFor(filename) {
		err = yaml.Unmarshal(bytes, tm)
	} else {
		err = json.Unmarshal(bytes, tm)
	}
	if err != nil {
		return nil, err
	}
	return tm, nil
}

// ActionTrace saves what a committed Action did to an agent
type ActionTrace struct {
	Day     int    `json:"day" yaml:"day"`
	AgentID int    `json:"agentid" yaml:"agentid"`
	Op      string `json:"op" yaml:"op"`
	VirusID int    `json:"virusid" yaml:"virusid"`
	ToolID  int    `json:"toolid" yaml:"toolid"`
	Source  int    `json:"source" yaml:"source"`
	Status  int    `json:"status" yaml:"status"`
	Queue   int    `json:"queue" yaml:"queue"`
}

func (at *ActionTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*at)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// AddActionTrace creates a record of a committed Action and stores it
func AddActionTrace(tm *TraceManager, day int, act *Action, agent *Agent) {
	if !tm.InUse {
		return
	}
	at := new(ActionTrace)
	at.Day = day
	at.AgentID = agent.id
	at.Op = act.Kind.String()
	at.VirusID = -1
	at.ToolID = -1
	if act.Virus != nil {
		at.VirusID = act.Virus.id
	}
	if act.Tool != nil {
		at.ToolID = act.Tool.id
	}
	at.Source = act.Source
	at.Status = int(agent.status)
	at.Queue = int(act.resolveQueue())

	trcInst := TraceInst{TraceDay: day, TraceType: "action", TraceStr: at.Serialize()}
	tm.AddTrace(agent.id, trcInst)
}
