package epiworld

// param.go holds the named-parameter store of a model and the ModelCfg
// description that configures a model from a yaml or json file

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// ParamHandle is the fast-access slot of a registered parameter
type ParamHandle int

// AddParam registers a named parameter with an initial value and returns its handle.
// Registering the same name twice is an error.
func (m *Model) AddParam(name string, value float64) (ParamHandle, error) {
	_, present := m.paramIdx[name]
	if present {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateParameter, name)
	}
	h := ParamHandle(len(m.paramVals))
	m.paramIdx[name] = h
	m.paramNames = append(m.paramNames, name)
	m.paramVals = append(m.paramVals, value)
	return h, nil
}

// SetParam changes the value of a registered parameter
func (m *Model) SetParam(name string, value float64) error {
	h, present := m.paramIdx[name]
	if !present {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	m.paramVals[h] = value
	return nil
}

// GetParam returns the value of a registered parameter
func (m *Model) GetParam(name string) (float64, error) {
	h, present := m.paramIdx[name]
	if !present {
		return 0.0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return m.paramVals[h], nil
}

// ParamHandleOf returns the handle of a registered parameter
func (m *Model) ParamHandleOf(name string) (ParamHandle, error) {
	h, present := m.paramIdx[name]
	if !present {
		return -1, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return h, nil
}

// Par is the hot-path read of a parameter by handle
func (m *Model) Par(h ParamHandle) float64 {
	return m.paramVals[h]
}

// Params returns a snapshot of every parameter
func (m *Model) Params() map[string]float64 {
	snap := make(map[string]float64, len(m.paramVals))
	for idx, name := range m.paramNames {
		snap[name] = m.paramVals[idx]
	}
	return snap
}

// ParamDesc is a named parameter in a ModelCfg
type ParamDesc struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// StatusCfg is an extra status in a ModelCfg
type StatusCfg struct {
	Code  int    `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
	Meta  string `json:"meta" yaml:"meta"`
}

// RateCfg sets one rate either to a constant or to a named parameter.
// An empty RateCfg leaves the default.
type RateCfg struct {
	Value *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Param string   `json:"param,omitempty" yaml:"param,omitempty"`
}

func (rc *RateCfg) empty() bool {
	return rc.Value == nil && len(rc.Param) == 0
}

// VirusCfg describes a registry virus
type VirusCfg struct {
	Name           string    `json:"name" yaml:"name"`
	Prevalence     float64   `json:"prevalence" yaml:"prevalence"`
	Infectiousness RateCfg   `json:"infectiousness" yaml:"infectiousness"`
	Persistence    RateCfg   `json:"persistence" yaml:"persistence"`
	Death          RateCfg   `json:"death" yaml:"death"`
	Data           []float64 `json:"data,omitempty" yaml:"data,omitempty"`
}

// ToolCfg describes a registry tool
type ToolCfg struct {
	Name                  string  `json:"name" yaml:"name"`
	Prevalence            float64 `json:"prevalence" yaml:"prevalence"`
	ContagionReduction    RateCfg `json:"contagionReduction" yaml:"contagionReduction"`
	TransmissionReduction RateCfg `json:"transmissionReduction" yaml:"transmissionReduction"`
	RecoveryEnhancer      RateCfg `json:"recoveryEnhancer" yaml:"recoveryEnhancer"`
	DeathReduction        RateCfg `json:"deathReduction" yaml:"deathReduction"`
}

// ModelCfg structure holds everything needed to set a model up, short of its population
type ModelCfg struct {
	Name       string      `json:"name" yaml:"name"`
	Seed       int64       `json:"seed" yaml:"seed"`
	NDays      int         `json:"ndays" yaml:"ndays"`
	Queuing    *bool       `json:"queuing,omitempty" yaml:"queuing,omitempty"`
	RewireProp float64     `json:"rewireProp" yaml:"rewireProp"`
	Parameters []ParamDesc `json:"parameters" yaml:"parameters"`
	Statuses   []StatusCfg `json:"statuses" yaml:"statuses"`
	Viruses    []VirusCfg  `json:"viruses" yaml:"viruses"`
	Tools      []ToolCfg   `json:"tools" yaml:"tools"`
}

// CreateModelCfg is a constructor
func CreateModelCfg(name string) *ModelCfg {
	mc := &ModelCfg{Name: name, Parameters: make([]ParamDesc, 0), Statuses: make([]StatusCfg, 0),
		Viruses: make([]VirusCfg, 0), Tools: make([]ToolCfg, 0)}
	return mc
}

// AddParameter includes a named parameter, replacing the value of one already present
func (mc *ModelCfg) AddParameter(name string, value float64) {
	idx := slices.IndexFunc(mc.Parameters, func(pd ParamDesc) bool { return pd.Name == name })
	if idx >= 0 {
		mc.Parameters[idx].Value = value
		return
	}
	mc.Parameters = append(mc.Parameters, ParamDesc{Name: name, Value: value})
}

// Apply registers the parameters, statuses, viruses and tools of the configuration
// on m, and sets the queuing and rewiring options
func (mc *ModelCfg) Apply(m *Model) error {
	for _, pd := range mc.Parameters {
		if _, err := m.AddParam(pd.Name, pd.Value); err != nil {
			return err
		}
	}

	for _, sc := range mc.Statuses {
		meta, err := MetaFromStr(sc.Meta)
		if err != nil {
			return err
		}
		if err := m.addStatus(meta, StatusCode(sc.Code), sc.Label); err != nil {
			return err
		}
	}

	for _, vc := range mc.Viruses {
		v := CreateVirus(vc.Name, nil)
		if len(vc.Data) > 0 {
			v.SetData(vc.Data)
		}
		setters := []struct {
			rc    RateCfg
			value func(float64)
			param func(ParamHandle)
		}{
			{vc.Infectiousness, v.SetInfectiousnessValue, v.SetInfectiousnessParam},
			{vc.Persistence, v.SetPersistenceValue, v.SetPersistenceParam},
			{vc.Death, v.SetDeathValue, v.SetDeathParam},
		}
		for _, s := range setters {
			if err := applyRate(m, s.rc, s.value, s.param); err != nil {
				return fmt.Errorf("virus %s: %w", vc.Name, err)
			}
		}
		if err := m.AddVirus(v, vc.Prevalence); err != nil {
			return err
		}
	}

	for _, tc := range mc.Tools {
		t := CreateTool(tc.Name)
		setters := []struct {
			rc    RateCfg
			value func(float64)
			param func(ParamHandle)
		}{
			{tc.ContagionReduction, t.SetContagionReductionValue, t.SetContagionReductionParam},
			{tc.TransmissionReduction, t.SetTransmissionReductionValue, t.SetTransmissionReductionParam},
			{tc.RecoveryEnhancer, t.SetRecoveryEnhancerValue, t.SetRecoveryEnhancerParam},
			{tc.DeathReduction, t.SetDeathReductionValue, t.SetDeathReductionParam},
		}
		for _, s := range setters {
			if err := applyRate(m, s.rc, s.value, s.param); err != nil {
				return fmt.Errorf("tool %s: %w", tc.Name, err)
			}
		}
		if err := m.AddTool(t, tc.Prevalence); err != nil {
			return err
		}
	}

	if mc.Queuing != nil {
		if *mc.Queuing {
			m.QueuingOn()
		} else {
			m.QueuingOff()
		}
	}
	if mc.RewireProp > 0.0 {
		if err := m.SetRewireProp(mc.RewireProp); err != nil {
			return err
		}
	}
	if mc.NDays > 0 {
		m.SetNDays(mc.NDays)
	}
	return nil
}

func applyRate(m *Model, rc RateCfg, value func(float64), param func(ParamHandle)) error {
	if rc.empty() {
		return nil
	}
	if len(rc.Param) > 0 {
		h, err := m.ParamHandleOf(rc.Param)
		if err != nil {
			return err
		}
		param(h)
		return nil
	}
	value(*rc.Value)
	return nil
}

// ModelCfgDict is a dictionary that holds ModelCfg objects in a map indexed by their Name.
type ModelCfgDict struct {
	DictName string              `json:"dictname" yaml:"dictname"`
	Cfgs     map[string]ModelCfg `json:"cfgs" yaml:"cfgs"`
}

// CreateModelCfgDict is a constructor
func CreateModelCfgDict(name string) *ModelCfgDict {
	mcd := new(ModelCfgDict)
	mcd.DictName = name
	mcd.Cfgs = make(map[string]ModelCfg)
	return mcd
}

// AddModelCfg adds the offered ModelCfg to the dictionary, returning
// an error if one with the same Name is already saved and overwrite is false
func (mcd *ModelCfgDict) AddModelCfg(mc *ModelCfg, overwrite bool) error {
	if !overwrite {
		_, present := mcd.Cfgs[mc.Name]
		if present {
			return fmt.Errorf("attempt to overwrite ModelCfg %s", mc.Name)
		}
	}
	mcd.Cfgs[mc.Name] = *mc
	return nil
}

// RecoverModelCfg returns the ModelCfg saved under name, and whether there is one
func (mcd *ModelCfgDict) RecoverModelCfg(name string) (*ModelCfg, bool) {
	mc, present := mcd.Cfgs[name]
	if present {
		return &mc, true
	}
	return nil, false
}

// Names lists the names of the saved configurations, sorted
func (mcd *ModelCfgDict) Names() []string {
	names := make([]string, 0, len(mcd.Cfgs))
	for name := range mcd.Cfgs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// WriteToFile stores the ModelCfgDict to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (mcd *ModelCfgDict) WriteToFile(filename string) error {
	return writeSerialized(filename, *mcd)
}

// ReadModelCfgDict deserializes a byte slice holding a ModelCfgDict.  If dict is
// empty the file whose name is given is read to acquire the bytes.
func ReadModelCfgDict(filename string, useYAML bool, dict []byte) (*ModelCfgDict, error) {
	example := ModelCfgDict{}
	if err := readSerialized(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// LoadModelCfgDict reads a ModelCfgDict, choosing yaml or json from the file extension
func LoadModelCfgDict(filename string) (*ModelCfgDict, error) {
	mcd, err := ReadModelCfgDict(filename, useYAMLFor(filename), []byte{})
	if err != nil {
		return nil, err
	}
	if mcd.Cfgs == nil {
		mcd.Cfgs = make(map[string]ModelCfg)
	}
	return mcd, nil
}

// WriteToFile stores the ModelCfg to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (mc *ModelCfg) WriteToFile(filename string) error {
	return writeSerialized(filename, *mc)
}

// ReadModelCfg deserializes a byte slice holding a representation of a ModelCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadModelCfg(filename string, useYAML bool, dict []byte) (*ModelCfg, error) {
	example := ModelCfg{}
	if err := readSerialized(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// LoadModelCfg reads a ModelCfg, choosing yaml or json from the file extension
func LoadModelCfg(filename string) (*ModelCfg, error) {
	return ReadModelCfg(filename, useYAMLFor(filename), []byte{})
}

// UpdateModelCfg merges the parameters of the configuration in updatefile into the
// one in orgfile and writes the result back to orgfile
func UpdateModelCfg(orgfile, updatefile string) error {
	modelCfg, err := LoadModelCfg(orgfile)
	if err != nil {
		return err
	}
	updateCfg, err := LoadModelCfg(updatefile)
	if err != nil {
		return err
	}
	for _, update := range updateCfg.Parameters {
		modelCfg.AddParameter(update.Name, update.Value)
	}
	return modelCfg.WriteToFile(orgfile)
}

func useYAMLFor(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".YAML" || ext == ".yml"
}

// writeSerialized marshals obj as yaml or json, depending on the extension of filename
func writeSerialized(filename string, obj any) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(obj)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(obj, "", "\t")
	default:
		return fmt.Errorf("cannot tell serialization of %s from its extension", filename)
	}
	if merr != nil {
		return merr
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		return cerr
	}
	_, werr := f.Write(bytes)
	if werr != nil {
		f.Close()
		return werr
	}
	return f.Close()
}

func readSerialized(filename string, useYAML bool, dict []byte, obj any) error {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return err
		}
	}
	if useYAML {
		return yaml.Unmarshal(dict, obj)
	}
	return json.Unmarshal(dict, obj)
}
