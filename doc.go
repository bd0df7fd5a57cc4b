// Package hrpc is an RPC service framework built around a per-request
// dependency-injection context and a boot-time plugin capability contract.
//
// # Architecture
//
// An application is assembled once at boot and then serves requests:
//
//   - Plugins are activated in declaration order. Each plugin is an explicit
//     capability descriptor: an optional activation hook, an optional
//     per-request scope factory, an optional method decorator, and declared
//     provides/requires capability keys.
//   - After activation, the contract validator checks that every plugin's
//     requires are satisfied by the union of all configuration fields
//     (exposed as "config.<field>") and all plugin provides. A missing key
//     aborts boot.
//   - Per request, the app builds a Context: an immutable view of the
//     resolved configuration plus a dependency container, wrapped by a scope
//     composer that enters every plugin-contributed scope participant in
//     plugin order and exits them in exact reverse order, chaining teardown
//     errors by cause.
//   - The routed service method runs against the Context; the handler
//     adapter maps the final outcome (domain error, dependency error,
//     protocol violation, or unexpected error) to a response.
//
// # Packages
//
//   - container: per-request key/value dependency container (require/provide)
//   - scope: two-phase scope participants and the enter/exit composer
//   - request: the per-request Context combining both
//   - plugin: plugin descriptors, registry, and the contract validator
//   - config: schema merge, layered loading, and the immutable snapshot
//   - service, router: service method registration and call dispatch
//   - app: boot sequence and the request handler adapter
//   - gateway, gateway/http, gateway/nats: transport adapters
//   - metric, health: observability
package hrpc
