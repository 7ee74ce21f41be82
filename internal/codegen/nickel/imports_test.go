package nickel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelter-dev/smelter/schema/ir"
)

func testTracker(t *testing.T) *importTracker {
	t.Helper()
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	e := testEmitter(t, module)
	info, ok := e.reg.Get(module.Name)
	require.True(t, ok)
	return newImportTracker(info)
}

func TestTrackerConsolidatedAliases(t *testing.T) {
	tr := testTracker(t)

	tests := []struct {
		typeName string
		module   string
		path     string
		want     string
	}{
		{
			"ObjectMeta", "io.k8s.apimachinery.pkg.apis.meta.v1",
			"../../apimachinery.pkg.apis/meta/v1/mod.ncl",
			"metaV1.ObjectMeta",
		},
		{
			"IntOrString", "io.k8s.apimachinery.pkg.util.intstr",
			"../../v0/mod.ncl",
			"v0Module.IntOrString",
		},
		{
			"PodTemplateSpec", "io.k8s.api.core.v1",
			"../../k8s_io/core/v1/mod.ncl",
			"coreV1.PodTemplateSpec",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.add(tt.typeName, tt.module, tt.path))
	}
}

func TestTrackerReusesBindingPerPath(t *testing.T) {
	tr := testTracker(t)

	first := tr.add("ObjectMeta", "io.k8s.apimachinery.pkg.apis.meta.v1", "../../apimachinery.pkg.apis/meta/v1/mod.ncl")
	second := tr.add("Time", "io.k8s.apimachinery.pkg.apis.meta.v1", "../../apimachinery.pkg.apis/meta/v1/mod.ncl")

	assert.Equal(t, "metaV1.ObjectMeta", first)
	assert.Equal(t, "metaV1.Time", second)
	assert.Len(t, tr.statements(), 1)
}

func TestTrackerGroupVersionAlias(t *testing.T) {
	tr := testTracker(t)

	got := tr.add("DeploymentSpec", "io.k8s.api.apps.v1", "../../k8s_io/apps/v1/mod.ncl")
	assert.Equal(t, "appsV1.DeploymentSpec", got)

	got = tr.add("Composition", "apiextensions.crossplane.io.v1", "../../apiextensions_crossplane_io/v1/mod.ncl")
	assert.Equal(t, "apiextensionsCrossplaneIoV1.Composition", got)
}

func TestTrackerSingleTypeAliases(t *testing.T) {
	tr := testTracker(t)

	// Another package: the group prefixes the binding.
	got := tr.add("DeploymentSpec", "io.k8s.api.apps.v1", "../../k8s_io/apps/v1/deploymentspec.ncl")
	assert.Equal(t, "apps_deploymentSpec", got)

	// Another version of the same group: the bare type name serves.
	got = tr.add("WidgetSpec", "widgets.example.com.v2", "../v2/widgetspec.ncl")
	assert.Equal(t, "widgetSpec", got)
}

func TestTrackerAliasCollision(t *testing.T) {
	tr := testTracker(t)

	first := tr.add("Thing", "other.example.com.v1", "../../other_example_com/v1/thing.ncl")
	second := tr.add("Thing", "other.example.net.v1", "../../other_example_net/v1/thing.ncl")

	assert.Equal(t, "other_thing", first)
	assert.Equal(t, "other_thing2", second)
	assert.Len(t, tr.statements(), 2)
}

func TestTrackerStatementsOrdering(t *testing.T) {
	tr := testTracker(t)

	tr.add("WidgetSpec", "widgets.example.com.v2", "../v2/widgetspec.ncl")
	tr.add("ObjectMeta", "io.k8s.apimachinery.pkg.apis.meta.v1", "../../apimachinery.pkg.apis/meta/v1/mod.ncl")
	tr.add("IntOrString", "io.k8s.apimachinery.pkg.util.intstr", "../../v0/mod.ncl")

	// Other packages first, then the local group, alias order within each.
	assert.Equal(t, []string{
		`let metaV1 = import "../../apimachinery.pkg.apis/meta/v1/mod.ncl" in`,
		`let v0Module = import "../../v0/mod.ncl" in`,
		`let widgetSpec = import "../v2/widgetspec.ncl" in`,
	}, tr.statements())
}

func TestTrackerEmptyStatements(t *testing.T) {
	tr := testTracker(t)
	assert.Nil(t, tr.statements())
}

func TestTrackerDeclaredImportKeepsAlias(t *testing.T) {
	tr := testTracker(t)

	imp := &ir.Import{
		Path:   "../../common_example_com/v1/mod.ncl",
		Alias:  "common",
		Module: "common.example.com.v1",
	}
	got := tr.declared(imp, "common.Shared")
	assert.Equal(t, "common.Shared", got)

	stmts := tr.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `let common = import "../../common_example_com/v1/mod.ncl" in`, stmts[0])
}

func TestTrackerDeclaredImportCollisionRenames(t *testing.T) {
	tr := testTracker(t)

	tr.add("Thing", "common.example.com.v1", "../../common_example_com/v1/thing.ncl")
	require.Equal(t, "../../common_example_com/v1/thing.ncl", tr.taken["common_thing"])

	imp := &ir.Import{
		Path:   "../../other_example_com/v1/mod.ncl",
		Alias:  "common_thing",
		Module: "other.example.com.v1",
	}
	got := tr.declared(imp, "common_thing.Shared")
	assert.Equal(t, "common_thing2.Shared", got)
}

func TestAliasForConventions(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		module   string
		path     string
		cross    bool
		want     string
	}{
		{"meta", "ObjectMeta", "io.k8s.apimachinery.pkg.apis.meta.v1", "../../apimachinery.pkg.apis/meta/v1/mod.ncl", true, "metaV1"},
		{"meta beta", "Condition", "io.k8s.apimachinery.pkg.apis.meta.v1beta1", "../../apimachinery.pkg.apis/meta/v1beta1/mod.ncl", true, "metaV1beta1"},
		{"runtime", "RawExtension", "io.k8s.apimachinery.pkg.runtime", "../../v0/mod.ncl", true, "v0Module"},
		{"core", "Volume", "io.k8s.api.core.v1", "../../k8s_io/core/v1/mod.ncl", true, "coreV1"},
		{"group version", "StatefulSetSpec", "io.k8s.api.apps.v1", "../../k8s_io/apps/v1/mod.ncl", true, "appsV1"},
		{"sibling version", "WidgetSpec", "widgets.example.com.v2", "../v2/mod.ncl", false, "v2Module"},
		{"same group type", "WidgetSpec", "widgets.example.com.v1", "./widgetspec.ncl", false, "widgetSpec"},
		{"cross group type", "GadgetSpec", "gadgets.example.com.v1", "../../gadgets_example_com/v1/gadgetspec.ncl", true, "gadgets_gadgetSpec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aliasFor(tt.typeName, tt.module, tt.path, tt.cross))
		})
	}
}

func TestGroupShort(t *testing.T) {
	assert.Equal(t, "apps", groupShort("io.k8s.api.apps.v1"))
	assert.Equal(t, "widgets", groupShort("widgets.example.com.v1"))
	assert.Equal(t, "gadgets", groupShort("gadgets.example.net.v2"))
}
