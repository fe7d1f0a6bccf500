package codegen

// GenerateSupport emits the shared helpers the generated controllers rely on:
// JSON writers and the access-rule evaluator. The caller identity comes from
// the X-Auth-Subject and X-Auth-Roles headers set by the fronting
// authentication layer.
func (g *Generator) GenerateSupport() string {
	g.reset()

	g.imports["encoding/json"] = true
	g.imports["net/http"] = true
	g.imports["strings"] = true

	g.writeLine("// Code generated support helpers. DO NOT EDIT.")
	g.writeLine("")
	g.writeLine("package %s", g.pkg)
	g.writeLine("")
	g.writeImports()
	g.writeLine("")

	g.writeLine("func writeJSON(w http.ResponseWriter, status int, body any) {")
	g.indent++
	g.writeLine("w.Header().Set(\"Content-Type\", \"application/json\")")
	g.writeLine("w.WriteHeader(status)")
	g.writeLine("json.NewEncoder(w).Encode(body)")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("func writeError(w http.ResponseWriter, status int, message string) {")
	g.indent++
	g.writeLine("writeJSON(w, status, map[string]string{\"error\": message})")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("func callerRoles(r *http.Request) (subject string, roles []string) {")
	g.indent++
	g.writeLine("subject = r.Header.Get(\"X-Auth-Subject\")")
	g.writeLine("if raw := r.Header.Get(\"X-Auth-Roles\"); raw != \"\" {")
	g.indent++
	g.writeLine("for _, role := range strings.Split(raw, \",\") {")
	g.indent++
	g.writeLine("roles = append(roles, strings.TrimSpace(role))")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("return subject, roles")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// authorize enforces one access rule. It writes the rejection response")
	g.writeLine("// itself and reports whether the handler may proceed.")
	g.writeLine("func authorize(w http.ResponseWriter, r *http.Request, kind string, required ...string) bool {")
	g.indent++
	g.writeLine("subject, roles := callerRoles(r)")
	g.writeLine("switch kind {")
	g.writeLine("case \"public\":")
	g.indent++
	g.writeLine("return true")
	g.indent--
	g.writeLine("case \"authenticated\":")
	g.indent++
	g.writeLine("if subject != \"\" {")
	g.indent++
	g.writeLine("return true")
	g.indent--
	g.writeLine("}")
	g.writeLine("writeError(w, http.StatusUnauthorized, \"authentication required\")")
	g.writeLine("return false")
	g.indent--
	g.writeLine("case \"roles\":")
	g.indent++
	g.writeLine("// \"*\" means no authentication is required.")
	g.writeLine("for _, want := range required {")
	g.indent++
	g.writeLine("if want == \"*\" {")
	g.indent++
	g.writeLine("return true")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("if subject == \"\" {")
	g.indent++
	g.writeLine("writeError(w, http.StatusUnauthorized, \"authentication required\")")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.writeLine("for _, want := range required {")
	g.indent++
	g.writeLine("for _, have := range roles {")
	g.indent++
	g.writeLine("if have == want || have == \"ROLE_\"+want || \"ROLE_\"+have == want {")
	g.indent++
	g.writeLine("return true")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("writeError(w, http.StatusForbidden, \"forbidden\")")
	g.writeLine("return false")
	g.indent--
	g.writeLine("default:")
	g.indent++
	g.writeLine("writeError(w, http.StatusForbidden, \"forbidden\")")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")

	return g.buf.String()
}
