package cli

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trackerd/core/internal/ontology"
)

// ontologyCmd groups ontology-descriptor maintenance subcommands.
var ontologyCmd = &cobra.Command{
	Use:   "ontology",
	Short: "Inspect and validate ontology descriptors",
}

var ontologyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the ontology directory and report any errors",
	Long: `validate loads every descriptor YAML file in --ontology-dir, merging
them into one registry and checking for duplicate URIs, unresolved
service/property parent references, and class-hierarchy cycles.`,
	RunE: runOntologyValidate,
}

var ontologySchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for a descriptor YAML document",
	RunE:  runOntologySchema,
}

func init() {
	rootCmd.AddCommand(ontologyCmd)
	ontologyCmd.AddCommand(ontologyValidateCmd)
	ontologyCmd.AddCommand(ontologySchemaCmd)
}

func resolveOntologyDir() string {
	if viper.IsSet("ontology-dir") {
		return viper.GetString("ontology-dir")
	}
	return ontologyDir
}

func runOntologyValidate(cmd *cobra.Command, args []string) error {
	dir := resolveOntologyDir()
	reg, err := ontology.Load(dir)
	if err != nil {
		return fmt.Errorf("ontology validation failed: %w", err)
	}
	fmt.Printf("ok: %s\n", reg)
	fmt.Printf("  services:   %d\n", len(reg.Services()))
	fmt.Printf("  properties: %d\n", len(reg.Properties()))
	return nil
}

// descriptorDocument is the shape a *.yml ontology file is validated
// against by ontology.Load; jsonschema derives its published schema from
// the same struct tags Load's YAML unmarshal uses, so the two can never
// drift apart silently.
type descriptorDocument struct {
	Services   []ontology.ServiceDescriptor  `json:"services" yaml:"services"`
	Properties []ontology.PropertyDescriptor `json:"properties" yaml:"properties"`
}

func runOntologySchema(cmd *cobra.Command, args []string) error {
	reflector := &jsonschema.Reflector{}
	schema := reflector.Reflect(&descriptorDocument{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
